package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNone ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	default:
		return "none"
	}
}

// AnswerValue is a closed variant over the values a respondent can submit.
// The zero value is an absent answer.
type AnswerValue struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

func StringValue(s string) AnswerValue { return AnswerValue{kind: KindString, str: s} }
func NumberValue(n float64) AnswerValue { return AnswerValue{kind: KindNumber, num: n} }
func BoolValue(b bool) AnswerValue { return AnswerValue{kind: KindBool, b: b} }
func ListValue(items []string) AnswerValue {
	return AnswerValue{kind: KindList, list: append([]string{}, items...)}
}

func (v AnswerValue) Kind() ValueKind { return v.kind }

func (v AnswerValue) Str() (string, bool) { return v.str, v.kind == KindString }
func (v AnswerValue) Number() (float64, bool) { return v.num, v.kind == KindNumber }
func (v AnswerValue) Bool() (bool, bool) { return v.b, v.kind == KindBool }
func (v AnswerValue) List() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// IsEmpty is true for an absent value, a blank string or an empty list.
// Numbers and booleans are never empty.
func (v AnswerValue) IsEmpty() bool {
	switch v.kind {
	case KindNone:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	case KindList:
		for _, item := range v.list {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the value as flat text, lists joined with ", ".
func (v AnswerValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

var errUnsupportedValue = errors.New("answer must be a string, number, boolean or list of strings")

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			switch it := item.(type) {
			case string:
				items = append(items, it)
			case float64:
				items = append(items, strconv.FormatFloat(it, 'f', -1, 64))
			case bool:
				items = append(items, strconv.FormatBool(it))
			default:
				return fmt.Errorf("list item %v: %w", item, errUnsupportedValue)
			}
		}
		*v = ListValue(items)
	case '{':
		return errUnsupportedValue
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}
