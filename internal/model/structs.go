package model

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Relation is returned by relation methods of structs passed to FromStruct:
//
//	func (Person) Team() model.Relation {
//		return model.Relation{Kind: model.RelationBelongsTo, Target: "Team"}
//	}
type Relation struct {
	Kind        RelationKind
	Target      string
	ForeignKey  string
	Pivot       string
	PivotFields []string
	EdgeLabel   string
}

// Predicate is returned by scope methods of structs passed to FromStruct.
// Scope methods follow the naming convention Scope<Name>:
//
//	func (Person) ScopeActive() model.Predicate {
//		return model.Predicate{Expression: "status = 'active'"}
//	}
type Predicate struct {
	Expression       string
	Parameters       []string
	Description      string
	Examples         []string
	Template         string
	ModificationHint string
}

// ScopeMethodPrefix is the naming convention that marks predicate methods
const ScopeMethodPrefix = "Scope"

var (
	relationType  = reflect.TypeOf(Relation{})
	predicateType = reflect.TypeOf(Predicate{})
	timeType      = reflect.TypeOf(time.Time{})
)

// tableNamer matches the common TableName() convention of Go ORMs
type tableNamer interface {
	TableName() string
}

// StructDescriptor is a Descriptor built by reflecting over a Go struct.
// Fields are mapped through `graph` struct tags; relations and predicates
// are read from methods invoked on the zero value.
type StructDescriptor struct {
	source     any
	name       string
	shortName  string
	collection string
	primaryKey string
	fillable   []string
	hidden     []string
	timestamps []string
	casts      map[string]CastKind
	relations  []RelationMethod
	predicates []PredicateMethod
}

// FromStruct builds a descriptor from a struct value or pointer.
//
// Supported tag components (comma separated):
//
//	graph:"pk"              primary key
//	graph:"fillable"        mass-assignable field
//	graph:"hidden"          never exposed
//	graph:"timestamp"       timestamp field
//	graph:"cast=text"       explicit cast kind
//	graph:"name=first_name" property name (defaults to snake_case of the field name)
//	graph:"-"               skip the field
//
// Fields without a graph tag are ignored.
func FromStruct(v any) (*StructDescriptor, error) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil, fmt.Errorf("cannot describe nil value")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	d := &StructDescriptor{
		source:    reflect.New(typ).Interface(),
		name:      typ.PkgPath() + "." + typ.Name(),
		shortName: typ.Name(),
		casts:     make(map[string]CastKind),
	}
	if typ.PkgPath() == "" {
		d.name = typ.Name()
	}

	if err := d.parseFields(typ); err != nil {
		return nil, fmt.Errorf("%s: %w", d.shortName, err)
	}
	d.parseMethods(typ)

	if namer, ok := d.source.(tableNamer); ok {
		d.collection = namer.TableName()
	}
	if d.collection == "" {
		d.collection = DefaultCollectionName(d.shortName)
	}

	return d, nil
}

func (d *StructDescriptor) parseFields(typ reflect.Type) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("graph")
		if !ok || tag == "-" {
			continue
		}

		propName := SnakeCase(field.Name)
		var cast CastKind
		var isPK, isFillable, isHidden, isTimestamp bool

		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "":
			case part == "pk":
				isPK = true
			case part == "fillable":
				isFillable = true
			case part == "hidden":
				isHidden = true
			case part == "timestamp":
				isTimestamp = true
			case strings.HasPrefix(part, "name="):
				propName = strings.TrimPrefix(part, "name=")
			case strings.HasPrefix(part, "cast="):
				kind, err := ParseCastKind(strings.TrimPrefix(part, "cast="))
				if err != nil {
					return fmt.Errorf("field %s: %w", field.Name, err)
				}
				cast = kind
			default:
				return fmt.Errorf("field %s: unknown graph tag component %q", field.Name, part)
			}
		}

		if cast == "" {
			cast = inferCast(field.Type)
		}
		if cast != "" {
			d.casts[propName] = cast
		}
		if isPK {
			if d.primaryKey != "" {
				return fmt.Errorf("multiple primary keys (%s, %s)", d.primaryKey, propName)
			}
			d.primaryKey = propName
		}
		if isFillable {
			d.fillable = append(d.fillable, propName)
		}
		if isHidden {
			d.hidden = append(d.hidden, propName)
		}
		if isTimestamp || propName == "created_at" || propName == "updated_at" {
			d.timestamps = append(d.timestamps, propName)
		}
	}

	if d.primaryKey == "" {
		if _, ok := typ.FieldByName("ID"); ok {
			d.primaryKey = "id"
		}
	}
	return nil
}

// parseMethods collects relation and predicate methods. Methods are visited
// in reflect's lexical order, which makes the result deterministic.
func (d *StructDescriptor) parseMethods(typ reflect.Type) {
	ptr := reflect.New(typ)
	ptrType := ptr.Type()

	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		// Receiver is the only input
		if method.Type.NumIn() != 1 || method.Type.NumOut() != 1 {
			continue
		}

		switch method.Type.Out(0) {
		case relationType:
			rel := ptr.Method(i).Call(nil)[0].Interface().(Relation)
			d.relations = append(d.relations, RelationMethod{
				Name:        SnakeCase(method.Name),
				Kind:        rel.Kind,
				Target:      rel.Target,
				ForeignKey:  rel.ForeignKey,
				Pivot:       rel.Pivot,
				PivotFields: rel.PivotFields,
				EdgeLabel:   rel.EdgeLabel,
			})
		case predicateType:
			if !strings.HasPrefix(method.Name, ScopeMethodPrefix) || method.Name == ScopeMethodPrefix {
				continue
			}
			pred := ptr.Method(i).Call(nil)[0].Interface().(Predicate)
			d.predicates = append(d.predicates, PredicateMethod{
				Name:             method.Name,
				Expression:       pred.Expression,
				Parameters:       pred.Parameters,
				Description:      pred.Description,
				Examples:         pred.Examples,
				Template:         pred.Template,
				ModificationHint: pred.ModificationHint,
			})
		}
	}
}

// inferCast maps a Go field type to a cast kind
func inferCast(t reflect.Type) CastKind {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return CastDateTime
	}
	switch t.Kind() {
	case reflect.String:
		return CastString
	case reflect.Bool:
		return CastBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return CastInt
	case reflect.Float32, reflect.Float64:
		return CastFloat
	case reflect.Slice, reflect.Array:
		return CastArray
	case reflect.Map, reflect.Struct:
		return CastJSON
	default:
		return ""
	}
}

// Source returns a pointer to the zero value of the described struct, so
// optional capabilities declared on the struct can be discovered.
func (d *StructDescriptor) Source() any { return d.source }

func (d *StructDescriptor) Name() string           { return d.name }
func (d *StructDescriptor) ShortName() string      { return d.shortName }
func (d *StructDescriptor) CollectionName() string { return d.collection }
func (d *StructDescriptor) PrimaryKey() string     { return d.primaryKey }

func (d *StructDescriptor) FillableFields() []string  { return append([]string(nil), d.fillable...) }
func (d *StructDescriptor) HiddenFields() []string    { return append([]string(nil), d.hidden...) }
func (d *StructDescriptor) TimestampFields() []string { return append([]string(nil), d.timestamps...) }

func (d *StructDescriptor) CastFields() map[string]CastKind {
	result := make(map[string]CastKind, len(d.casts))
	for k, v := range d.casts {
		result[k] = v
	}
	return result
}

func (d *StructDescriptor) DeclaredRelations() []RelationMethod {
	return append([]RelationMethod(nil), d.relations...)
}

func (d *StructDescriptor) DeclaredPredicates() []PredicateMethod {
	return append([]PredicateMethod(nil), d.predicates...)
}

// sourced is implemented by adapters that wrap another value
type sourced interface {
	Source() any
}

// capability looks for an optional interface on the descriptor itself,
// then on the value it wraps.
func capability[T any](d Descriptor) (T, bool) {
	if c, ok := d.(T); ok {
		return c, true
	}
	if s, ok := d.(sourced); ok {
		if c, ok := s.Source().(T); ok {
			return c, true
		}
	}
	var zero T
	return zero, false
}

// AsGraphConfigProvider returns the descriptor's graph configuration override, if any
func AsGraphConfigProvider(d Descriptor) (GraphConfigProvider, bool) {
	return capability[GraphConfigProvider](d)
}

// AsVectorConfigProvider returns the descriptor's vector configuration override, if any
func AsVectorConfigProvider(d Descriptor) (VectorConfigProvider, bool) {
	return capability[VectorConfigProvider](d)
}

// AsCustomizer returns the descriptor's customization hook, if any
func AsCustomizer(d Descriptor) (Customizer, bool) {
	return capability[Customizer](d)
}

// SortedCastKeys returns the keys of a cast map in sorted order
func SortedCastKeys(casts map[string]CastKind) []string {
	keys := make([]string, 0, len(casts))
	for k := range casts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
