package dyndb

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Timestamp layouts probed when reading string attributes back. RFC3339 is
// what this store writes; the zoneless layout covers records written by the
// previous generation of the backend.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// MarshalRecord converts an application record into the DynamoDB native
// representation. time.Time values become RFC3339 text, maps and slices
// recurse element-wise, scalars pass through, and any other type falls back
// to its fmt.Sprint form. The fallback is lossy and deliberate: the codec is
// total for anything the store itself writes.
func MarshalRecord(rec Record) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(rec))
	for k, v := range rec {
		out[k] = marshalValue(v)
	}
	return out
}

func marshalValue(v any) types.AttributeValue {
	switch val := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}
	case time.Time:
		return &types.AttributeValueMemberS{Value: val.UTC().Format(time.RFC3339Nano)}
	case string:
		return &types.AttributeValueMemberS{Value: val}
	case bool:
		return &types.AttributeValueMemberBOOL{Value: val}
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(val)}
	case int32:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(val), 10)}
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(val, 10)}
	case float32:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(val), 'f', -1, 32)}
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(val, 'f', -1, 64)}
	case Record:
		return &types.AttributeValueMemberM{Value: MarshalRecord(val)}
	case map[string]any:
		return &types.AttributeValueMemberM{Value: MarshalRecord(Record(val))}
	case []any:
		list := make([]types.AttributeValue, 0, len(val))
		for _, item := range val {
			list = append(list, marshalValue(item))
		}
		return &types.AttributeValueMemberL{Value: list}
	case []string:
		list := make([]types.AttributeValue, 0, len(val))
		for _, item := range val {
			list = append(list, marshalValue(item))
		}
		return &types.AttributeValueMemberL{Value: list}
	default:
		// Lossy fallback for unrecognized types, kept for compatibility.
		return &types.AttributeValueMemberS{Value: fmt.Sprint(val)}
	}
}

// UnmarshalRecord converts a DynamoDB item back into an application record.
// Every string attribute is probed as a timestamp; strings that parse come
// back as time.Time. This reinterpretation is documented behavior: a note
// field holding an ISO-8601 string will round-trip as a timestamp, not text.
func UnmarshalRecord(item map[string]types.AttributeValue) Record {
	rec := make(Record, len(item))
	for k, v := range item {
		rec[k] = unmarshalValue(v)
	}
	return rec
}

func unmarshalValue(av types.AttributeValue) any {
	switch val := av.(type) {
	case *types.AttributeValueMemberS:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, val.Value); err == nil {
				return ts
			}
		}
		return val.Value
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseFloat(val.Value, 64)
		if err != nil {
			return val.Value
		}
		return n
	case *types.AttributeValueMemberBOOL:
		return val.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberM:
		return UnmarshalRecord(val.Value)
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(val.Value))
		for _, item := range val.Value {
			list = append(list, unmarshalValue(item))
		}
		return list
	case *types.AttributeValueMemberSS:
		list := make([]any, 0, len(val.Value))
		for _, s := range val.Value {
			list = append(list, s)
		}
		return list
	case *types.AttributeValueMemberNS:
		list := make([]any, 0, len(val.Value))
		for _, s := range val.Value {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				list = append(list, n)
			}
		}
		return list
	default:
		return nil
	}
}
