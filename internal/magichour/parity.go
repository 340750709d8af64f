package magichour

import (
	"fmt"
	"reflect"
	"sort"
)

// parityExcluded lists create fields that may differ in shape between
// create and generate.
var parityExcluded = map[string]bool{
	"Assets": true,
}

// MissingGenerateFields reports the fields of the create params struct that
// the generate params struct does not accept with the same name, type and
// JSON name. Both arguments are struct values (or pointers to structs).
// An empty result means the two shapes are in lock-step.
func MissingGenerateFields(create, generate any) []string {
	ct := structType(create)
	gt := structType(generate)

	var missing []string
	for i := 0; i < ct.NumField(); i++ {
		cf := ct.Field(i)
		if !cf.IsExported() || parityExcluded[cf.Name] {
			continue
		}
		gf, ok := gt.FieldByName(cf.Name)
		switch {
		case !ok:
			missing = append(missing, cf.Name)
		case gf.Type != cf.Type:
			missing = append(missing, fmt.Sprintf("%s (type %s, want %s)", cf.Name, gf.Type, cf.Type))
		case gf.Tag.Get("json") != cf.Tag.Get("json"):
			missing = append(missing, fmt.Sprintf("%s (json %q, want %q)", cf.Name, gf.Tag.Get("json"), cf.Tag.Get("json")))
		}
	}
	sort.Strings(missing)
	return missing
}

func structType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("magichour: %T is not a struct", v))
	}
	return t
}
