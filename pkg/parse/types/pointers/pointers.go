package pointers

import (
	"fmt"
	"strconv"

	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/gobuffalo/flect"
)

const (
	TypePointer  string = "Pointer"
	TypeObject   string = "Object"
	TypeRelation string = "Relation"
	TypeDate     string = "Date"

	OpDelete string = "Delete"

	UserType      string = "parse-user"
	UserClassName string = "_User"
)

// Pointer is the wire representation of a types.Reference
type Pointer struct {
	Type      string `json:"__type"`
	ClassName string `json:"className"`
	ObjectID  string `json:"objectId"`
}

// DeleteOp instructs the backend to clear a field
type DeleteOp struct {
	Op string `json:"__op"`
}

func Delete() DeleteOp {
	return DeleteOp{Op: OpDelete}
}

func Encode(ref types.Reference) Pointer {
	return Pointer{
		Type:      TypePointer,
		ClassName: ClassName(ref.Type),
		ObjectID:  ref.ID,
	}
}

func EncodeAll(refs []types.Reference) []Pointer {
	ptrs := make([]Pointer, 0, len(refs))
	for _, ref := range refs {
		ptrs = append(ptrs, Encode(ref))
	}
	return ptrs
}

type DecodedKind int

const (
	Null DecodedKind = iota
	Ref
	Embedded
	Removal
)

func (k DecodedKind) String() string {
	switch k {
	case Null:
		return "null"
	case Ref:
		return "reference"
	case Embedded:
		return "embedded"
	case Removal:
		return "removal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Decoded is the outcome of decoding a single relationship value. Ref is set for
// both Ref and Embedded results. Object holds the full payload of an embedded entity.
type Decoded struct {
	Kind   DecodedKind
	Ref    types.Reference
	Object map[string]any
}

// Decode interprets a raw JSON value (as produced by encoding/json) found in a
// relationship field. declaredType is the target type of the relationship and takes
// precedence over the class name carried by the value itself.
func Decode(raw any, declaredType string) (Decoded, error) {
	switch typed := raw.(type) {
	case nil:
		return Decoded{Kind: Null}, nil
	case string:
		if typed == "" {
			return Decoded{Kind: Null}, nil
		}
		return Decoded{Kind: Ref, Ref: types.NewReference(declaredType, typed)}, nil
	case float64:
		return Decoded{Kind: Ref, Ref: types.NewReference(declaredType, strconv.FormatFloat(typed, 'f', -1, 64))}, nil
	case map[string]any:
		return decodeObject(typed, declaredType)
	case Pointer:
		return decodeObject(map[string]any{"__type": typed.Type, "className": typed.ClassName, "objectId": typed.ObjectID}, declaredType)
	case DeleteOp:
		return Decoded{Kind: Removal}, nil
	default:
		return Decoded{}, fmt.Errorf("decoding of relationship values of type %T is not supported", typed)
	}
}

func decodeObject(obj map[string]any, declaredType string) (Decoded, error) {
	objectID, _ := obj["objectId"].(string)

	refType := declaredType
	if refType == "" {
		if className, ok := obj["className"].(string); ok {
			refType = TypeName(className)
		}
	}

	if t, ok := obj["__type"].(string); ok {
		switch t {
		case TypePointer:
			if objectID == "" {
				return Decoded{Kind: Null}, nil
			}
			return Decoded{Kind: Ref, Ref: types.NewReference(refType, objectID)}, nil
		case TypeObject:
			if objectID == "" {
				return Decoded{}, fmt.Errorf("embedded object of class %v has no objectId", obj["className"])
			}
			return Decoded{Kind: Embedded, Ref: types.NewReference(refType, objectID), Object: obj}, nil
		default:
			return Decoded{}, fmt.Errorf("unsupported envelope type %q", t)
		}
	}

	if op, ok := obj["__op"].(string); ok {
		if op == OpDelete {
			return Decoded{Kind: Removal}, nil
		}
		return Decoded{}, fmt.Errorf("unsupported operation %q in relationship value", op)
	}

	if objectID != "" {
		return Decoded{Kind: Ref, Ref: types.NewReference(refType, objectID)}, nil
	}

	return Decoded{}, fmt.Errorf("relationship object without objectId is not supported")
}

// ClassName converts a local dash or camel case type name into the backend class name
func ClassName(typeName string) string {
	if typeName == UserType || typeName == "parseUser" {
		return UserClassName
	}

	return flect.Pascalize(typeName)
}

// TypeName converts a backend class name into a dasherized local type name
func TypeName(className string) string {
	if className == UserClassName {
		return UserType
	}

	return Dasherize(className)
}

// Dasherize turns BlogPost, blogPost and blog_post into blog-post
func Dasherize(s string) string {
	return flect.Dasherize(s)
}
