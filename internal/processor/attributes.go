package processor

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
)

// DecodeImage turns a DynamoDB attribute-value image into plain Go values.
// Numbers become int64 when integral and float64 otherwise; sets become
// slices. A nil or "null" image decodes to an empty map.
func DecodeImage(raw json.RawMessage) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}

	var attrs map[string]events.DynamoDBAttributeValue
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	for name, av := range attrs {
		v, err := attributeValue(av)
		if err != nil {
			return nil, fmt.Errorf("decode attribute %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func attributeValue(av events.DynamoDBAttributeValue) (interface{}, error) {
	switch av.DataType() {
	case events.DataTypeString:
		return av.String(), nil
	case events.DataTypeNumber:
		return parseNumber(av.Number())
	case events.DataTypeBoolean:
		return av.Boolean(), nil
	case events.DataTypeNull:
		return nil, nil
	case events.DataTypeBinary:
		return av.Binary(), nil
	case events.DataTypeStringSet:
		set := av.StringSet()
		out := make([]interface{}, len(set))
		for i, s := range set {
			out[i] = s
		}
		return out, nil
	case events.DataTypeNumberSet:
		set := av.NumberSet()
		out := make([]interface{}, len(set))
		for i, s := range set {
			n, err := parseNumber(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case events.DataTypeBinarySet:
		set := av.BinarySet()
		out := make([]interface{}, len(set))
		for i, b := range set {
			out[i] = b
		}
		return out, nil
	case events.DataTypeList:
		list := av.List()
		out := make([]interface{}, len(list))
		for i, item := range list {
			v, err := attributeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case events.DataTypeMap:
		m := av.Map()
		out := make(map[string]interface{}, len(m))
		for k, item := range m {
			v, err := attributeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %v", av.DataType())
	}
}

func parseNumber(s string) (interface{}, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// stringField returns m[key] when it is a string.
func stringField(m map[string]interface{}, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// boolField reads a boolean attribute, accepting "true"/"false" strings.
func boolField(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}
