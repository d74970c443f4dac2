package stream

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"sk":   events.NewStringAttribute("Customer/c1"),
		"n":    events.NewNumberAttribute("42"),
		"name": events.NewStringAttribute("日本語テスト"),
	}

	tests := []struct {
		name     string
		image    map[string]events.DynamoDBAttributeValue
		key      string
		expected string
	}{
		{"existing string", image, "sk", "Customer/c1"},
		{"unicode", image, "name", "日本語テスト"},
		{"number is not a string", image, "n", ""},
		{"missing key", image, "pk", ""},
		{"nil image", nil, "sk", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getStringAttr(tt.image, tt.key); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
