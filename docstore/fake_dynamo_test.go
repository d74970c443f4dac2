package docstore_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is a minimal in-memory DynamoDB covering the calls the Dynamo
// backend makes. Filter expressions are ignored; the backend re-checks
// matches in process.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	queries []*dynamodb.QueryInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemID(key map[string]types.AttributeValue) string {
	return strAttr(key, "pk") + "|" + strAttr(key, "sk")
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemID(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := itemID(in.Item)
	_, exists := f.items[id]
	if in.ConditionExpression != nil {
		cond := *in.ConditionExpression
		if strings.HasPrefix(cond, "attribute_not_exists") && exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if strings.HasPrefix(cond, "attribute_exists") && !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemID(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)

	pk := strAttr(in.ExpressionAttributeValues, ":pk")
	prefix := strAttr(in.ExpressionAttributeValues, ":prefix")

	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if strAttr(item, "pk") == pk && strings.HasPrefix(strAttr(item, "sk"), prefix) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strAttr(out[i], "sk") < strAttr(out[j], "sk") })
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}
