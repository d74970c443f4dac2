package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// timeLayout is fixed width so lexical order of stored times matches
// chronological order in filter expressions.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DynamoAPI is the subset of the DynamoDB client used by Dynamo.
type DynamoAPI interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Dynamo stores every kind in one DynamoDB table. An entity group (a root
// key and all its descendants) shares a partition, so ancestor queries are
// single-partition queries on the sort key prefix.
type Dynamo struct {
	client DynamoAPI
	config Config
}

// NewDynamo creates a DynamoDB-backed Store.
func NewDynamo(client DynamoAPI, config Config) *Dynamo {
	config.validate()
	return &Dynamo{
		client: client,
		config: config,
	}
}

// Table returns the configured table name.
func (d *Dynamo) Table() string {
	return d.config.Table
}

// Get implements Store.
func (d *Dynamo) Get(ctx context.Context, key Key) (*Record, error) {
	if key.IsZero() {
		return nil, ErrIncompleteKey
	}
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.config.Table),
		Key:            primaryKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNoSuchEntity
	}
	return decodeItem(result.Item)
}

// Save implements Store.
func (d *Dynamo) Save(ctx context.Context, m Mutation) error {
	if m.Key.IsZero() {
		return ErrIncompleteKey
	}
	props, err := normalizeProperties(m.Properties)
	if err != nil {
		return err
	}
	item, err := encodeItem(m.Key, props)
	if err != nil {
		return err
	}

	var condition string
	var condErrValue error
	switch m.Method {
	case Insert:
		condition = "attribute_not_exists(#pk)"
		condErrValue = ErrAlreadyExists
	case Update:
		condition = "attribute_exists(#pk)"
		condErrValue = ErrNoSuchEntity
	default:
		return fmt.Errorf("docstore: unknown save method %q", m.Method)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.config.Table),
		Item:                     item,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: map[string]string{"#pk": "pk"},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return condErrValue
		}
		return err
	}
	return nil
}

// Delete implements Store.
func (d *Dynamo) Delete(ctx context.Context, key Key) error {
	if key.IsZero() {
		return ErrIncompleteKey
	}
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.config.Table),
		Key:       primaryKey(key),
	})
	return err
}

// RunQuery implements Store. The backend only serves ancestor queries.
// Kind and property filters are pushed down to narrow the transfer, and
// re-checked in process because the sort key prefix also matches sibling
// ids sharing a prefix (Customer/c1 vs Customer/c10).
func (d *Dynamo) RunQuery(ctx context.Context, q *Query) ([]*Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Ancestor.IsZero() {
		return nil, fmt.Errorf("%w: dynamodb backend requires an ancestor", ErrInvalidQuery)
	}

	input, err := d.buildQueryInput(q)
	if err != nil {
		return nil, err
	}

	var records []*Record
	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			rec, err := decodeItem(raw)
			if err != nil {
				return nil, err
			}
			if q.Matches(rec) {
				records = append(records, rec)
			}
		}
	}

	q.sortRecords(records)
	return records, nil
}

// buildQueryInput translates q into a DynamoDB query.
func (d *Dynamo) buildQueryInput(q *Query) (*dynamodb.QueryInput, error) {
	exprNames := map[string]string{
		"#pk": "pk",
		"#sk": "sk",
	}
	exprValues := map[string]types.AttributeValue{
		":pk":     &types.AttributeValueMemberS{Value: q.Ancestor.Root().Encode()},
		":prefix": &types.AttributeValueMemberS{Value: q.Ancestor.Encode()},
	}

	var filters []string
	if q.Kind != "" {
		exprNames["#kind"] = "kind"
		exprValues[":kind"] = &types.AttributeValueMemberS{Value: q.Kind}
		filters = append(filters, "#kind = :kind")
	}
	if len(q.Filters) > 0 {
		exprNames["#data"] = "data"
	}
	for i, f := range q.Filters {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":f%d", i)
		v, err := marshalFilterValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %s: %v", ErrInvalidQuery, f.Property, err)
		}
		exprNames[nameKey] = f.Property
		exprValues[valueKey] = v
		filters = append(filters, fmt.Sprintf("#data.%s %s %s", nameKey, f.Op, valueKey))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.config.Table),
		KeyConditionExpression:    aws.String("#pk = :pk AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ConsistentRead:            aws.Bool(true),
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(joinStrings(filters, " AND "))
	}
	return input, nil
}

// primaryKey returns the DynamoDB key attributes for key.
func primaryKey(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key.Root().Encode()},
		"sk": &types.AttributeValueMemberS{Value: key.Encode()},
	}
}

// encodeItem renders a record as a DynamoDB item. Top-level time values are
// stored as fixed-width strings and listed in tprops so they decode back to
// time.Time.
func encodeItem(key Key, props Properties) (map[string]types.AttributeValue, error) {
	plain := make(map[string]any, len(props))
	var timeProps []string
	for k, v := range props {
		if _, ok := v.(time.Time); ok {
			timeProps = append(timeProps, k)
		}
		plain[k] = flattenTimes(v)
	}

	data, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	item := primaryKey(key)
	item["kind"] = &types.AttributeValueMemberS{Value: key.Kind()}
	item["data"] = &types.AttributeValueMemberM{Value: data}
	if len(timeProps) > 0 {
		item["tprops"] = &types.AttributeValueMemberSS{Value: timeProps}
	}
	return item, nil
}

// decodeItem converts a DynamoDB item back to a Record.
func decodeItem(raw map[string]types.AttributeValue) (*Record, error) {
	sk, ok := raw["sk"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("docstore: item without sort key")
	}
	key, err := ParseKey(sk.Value)
	if err != nil {
		return nil, err
	}

	props := Properties{}
	if data, ok := raw["data"].(*types.AttributeValueMemberM); ok {
		var m map[string]any
		if err := attributevalue.UnmarshalMap(data.Value, &m); err != nil {
			return nil, fmt.Errorf("unmarshal properties of %s: %w", key, err)
		}
		for k, v := range m {
			props[k] = v
		}
	}
	if tp, ok := raw["tprops"].(*types.AttributeValueMemberSS); ok {
		for _, name := range tp.Value {
			s, ok := props[name].(string)
			if !ok {
				continue
			}
			t, err := time.Parse(timeLayout, s)
			if err != nil {
				return nil, fmt.Errorf("parse time property %q of %s: %w", name, key, err)
			}
			props[name] = t
		}
	}
	return &Record{Key: key, Properties: props}, nil
}

// flattenTimes replaces time values with their stored string form.
func flattenTimes(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeLayout)
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = flattenTimes(vv)
		}
		return s
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = flattenTimes(vv)
		}
		return m
	}
	return v
}

func marshalFilterValue(v any) (types.AttributeValue, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return attributevalue.Marshal(flattenTimes(n))
}

// joinStrings joins strings with a separator.
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for _, s := range strs[1:] {
		result += sep + s
	}
	return result
}
