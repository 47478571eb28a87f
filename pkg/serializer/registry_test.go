package serializer

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/metrics"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

type RegistrySuite struct {
	suite.Suite

	reg *Registry
}

func (s *RegistrySuite) SetupTest() {
	s.reg = NewRegistry()
}

func (s *RegistrySuite) TestPersonEndToEnd() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Person", map[string]string{
		"name": "string",
		"tags": "string[]",
	}))

	in := map[string]any{"name": "Al", "tags": []any{"a", "b"}}
	out, err := s.reg.Deserialize(in, "Person")
	s.Require().NoError(err)
	s.Equal(in, out)

	out, err = s.reg.Serialize(nil, "Person")
	s.NoError(err)
	s.Nil(out)
}

func (s *RegistrySuite) TestClassIgnoresUndeclaredAndAbsentFields() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Person", map[string]string{
		"name": "string",
		"age":  "number",
	}))
	out, err := s.reg.Serialize(map[string]any{"name": "Al", "extra": true}, "Person")
	s.Require().NoError(err)
	s.Equal(map[string]any{"name": "Al"}, out)
}

func (s *RegistrySuite) TestClassWrongShape() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Person", map[string]string{"name": "string"}))
	_, err := s.reg.Serialize("Al", "Person")
	s.ErrorIs(err, merr.ErrValueMismatch)
	s.Equal(merr.DataError, merr.GetErrorType(err))
}

func (s *RegistrySuite) TestArrayEquivalentToManualBinding() {
	upper := Funcs{
		SerializeFunc:   func(v any) (any, error) { return v.(string) + "!", nil },
		DeserializeFunc: func(v any) (any, error) { return v.(string) + "?", nil },
	}
	s.Require().NoError(s.reg.RegisterSerializer("Shout", upper))

	builtin, err := s.reg.Lookup("Array<Shout>")
	s.Require().NoError(err)
	suffix, err := s.reg.Lookup("Shout[]")
	s.Require().NoError(err)
	manual, err := ArrayFactory(s.reg, TypeEnvironment{ArrayParam: mustExpr("Shout")})
	s.Require().NoError(err)

	in := []any{"a", "b"}
	for _, ser := range []Serializer{builtin, suffix, manual} {
		out, err := ser.Serialize(in)
		s.Require().NoError(err)
		s.Equal([]any{"a!", "b!"}, out)
	}
	s.Same(builtin, suffix)
}

func (s *RegistrySuite) TestNestedDictionary() {
	s.Require().NoError(s.reg.RegisterEnumSerializer("Color", map[string]any{"RED": 1, "GREEN": 2}))
	in := map[string]any{"x": []any{"RED", "GREEN"}, "y": []any{}}
	out, err := s.reg.Deserialize(in, "Dictionary<Array<Color>>")
	s.Require().NoError(err)
	s.Equal(map[string]any{"x": []any{1, 2}, "y": []any{}}, out)

	back, err := s.reg.Serialize(out, "Dictionary<Color[]>")
	s.Require().NoError(err)
	s.Equal(in, back)

	strs := map[string]any{"k": []any{"a"}}
	out, err = s.reg.Serialize(strs, "Dictionary<Array<string>>")
	s.Require().NoError(err)
	s.Equal(strs, out)
}

func (s *RegistrySuite) TestNullablePassThrough() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Foo", map[string]string{"a": "string"}))
	for _, typ := range []string{"Foo | null", "Foo[] | null", "Array<Foo | null>"} {
		out, err := s.reg.Deserialize(nil, typ)
		s.NoError(err)
		s.Nil(out)
		out, err = s.reg.Serialize(nil, typ)
		s.NoError(err)
		s.Nil(out)
	}
	out, err := s.reg.Serialize([]any{nil, map[string]any{"a": "x"}}, "Array<Foo | null>")
	s.Require().NoError(err)
	s.Equal([]any{nil, map[string]any{"a": "x"}}, out)
}

func (s *RegistrySuite) TestResolutionErrors() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Page<T>", map[string]string{"items": "T[]"}))
	s.Require().NoError(s.reg.RegisterClassSerializer("Person", map[string]string{"name": "string"}))

	cases := []struct {
		typ  string
		want error
	}{
		{"Unknown", merr.ErrTypeUnresolvable},
		{"Unknown<string>", merr.ErrTypeUnresolvable},
		{"Page", merr.ErrTypeArityMismatch},
		{"Page<string,number>", merr.ErrTypeArityMismatch},
		{"Person<string>", merr.ErrTypeArityMismatch},
		{"Dictionary<string,string>", merr.ErrTypeArityMismatch},
		{"Array<Unknown>", merr.ErrTypeUnresolvable},
		{"Page<", merr.ErrTypeMalformed},
		{"string | nil", merr.ErrTypeMalformed},
	}
	for _, c := range cases {
		_, err := s.reg.Lookup(c.typ)
		s.ErrorIs(err, c.want, c.typ)
		s.True(merr.IsResolutionError(err), c.typ)
	}
}

func (s *RegistrySuite) TestGenericClassBinding() {
	s.Require().NoError(s.reg.RegisterEnumConstants("Color", "RED", "GREEN"))
	s.Require().NoError(s.reg.RegisterClassSerializer("Pair<A,B>", map[string]string{
		"first":  "A",
		"second": "Dictionary<B> | null",
	}))
	s.Require().NoError(s.reg.RegisterClassSerializer("Page<T>", map[string]string{
		"items": "T[]",
		"total": "number",
	}))

	in := map[string]any{
		"items": []any{
			map[string]any{"first": "RED", "second": map[string]any{"k": 1.0}},
			map[string]any{"first": "GREEN", "second": nil},
		},
		"total": 2.0,
	}
	out, err := s.reg.Deserialize(in, "Page<Pair<Color,number>>")
	s.Require().NoError(err)
	s.Equal(in, out)

	bad := map[string]any{"items": []any{map[string]any{"first": "BLUE"}}}
	_, err = s.reg.Deserialize(bad, "Page<Pair<Color,number>>")
	s.ErrorIs(err, merr.ErrValueMismatch)
	s.Contains(err.Error(), "first")
}

func (s *RegistrySuite) TestRecursiveGeneric() {
	s.Require().NoError(s.reg.RegisterClassSerializer("TreeNode<T>", map[string]string{
		"value":    "T",
		"children": "TreeNode<T>[]",
	}))
	in := map[string]any{
		"value": "root",
		"children": []any{
			map[string]any{"value": "leaf", "children": []any{}},
		},
	}
	out, err := s.reg.Serialize(in, "TreeNode<string>")
	s.Require().NoError(err)
	s.Equal(in, out)
	s.NoError(s.reg.Verify("TreeNode<string>"))
}

func (s *RegistrySuite) TestVerifyPolymorphicRecursion() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Nested<T>", map[string]string{
		"value": "T",
		"inner": "Nested<T[]> | null",
	}))
	s.Require().NoError(s.reg.RegisterClassSerializer("Broken<T>", map[string]string{
		"inner": "Broken<T[]>",
		"other": "Missing",
	}))
	in := map[string]any{
		"value": "a",
		"inner": map[string]any{"value": []any{"b"}, "inner": nil},
	}
	out, err := s.reg.Deserialize(in, "Nested<string>")
	s.Require().NoError(err)
	s.Equal(in, out)

	s.NoError(s.reg.Verify("Nested<string>"))

	err = s.reg.Verify("Broken<string>")
	s.ErrorIs(err, merr.ErrTypeUnresolvable)
	s.Len(merr.Errors(err), 1)
}

func (s *RegistrySuite) TestCustomGenericFactory() {
	calls := 0
	s.Require().NoError(s.reg.RegisterSerializerFactory("Box<T>", func(r Resolver, env TypeEnvironment) (Serializer, error) {
		calls++
		inner, err := env.Resolve(r, "T")
		if err != nil {
			return nil, err
		}
		return Funcs{
			SerializeFunc: func(v any) (any, error) {
				sv, err := inner.Serialize(v)
				return map[string]any{"boxed": sv}, err
			},
			DeserializeFunc: func(v any) (any, error) {
				return inner.Deserialize(v.(map[string]any)["boxed"])
			},
		}, nil
	}))

	out, err := s.reg.Serialize("x", "Box<string>")
	s.Require().NoError(err)
	s.Equal(map[string]any{"boxed": "x"}, out)
	back, err := s.reg.Deserialize(out, "Box< string >")
	s.Require().NoError(err)
	s.Equal("x", back)
	s.Equal(1, calls)
}

func (s *RegistrySuite) TestFreeze() {
	s.False(s.reg.Frozen())
	_, err := s.reg.Lookup("string")
	s.Require().NoError(err)
	s.True(s.reg.Frozen())

	s.ErrorIs(s.reg.RegisterIdentitySerializer("Instant"), merr.ErrRegistryFrozen)
	s.ErrorIs(s.reg.RegisterEnumConstants("Color", "RED"), merr.ErrRegistryFrozen)
	s.ErrorIs(s.reg.RegisterClassSerializer("Person", nil), merr.ErrRegistryFrozen)
	s.ErrorIs(s.reg.RegisterSerializer("X", Identity), merr.ErrRegistryFrozen)
	s.ErrorIs(s.reg.RegisterSerializerFactory("Y<T>", Static(Identity)), merr.ErrRegistryFrozen)
}

func (s *RegistrySuite) TestInvalidRegistrations() {
	invalid := []string{"Box<T,T>", "Box<T[]>", "T[]", "Foo | null", "Box<List<T>>"}
	for _, name := range invalid {
		s.ErrorIs(s.reg.RegisterIdentitySerializer(name), merr.ErrRegistrationInvalid, name)
	}
	s.ErrorIs(s.reg.RegisterIdentitySerializer("Box<"), merr.ErrTypeMalformed)
	s.ErrorIs(s.reg.RegisterSerializer("X", nil), merr.ErrRegistrationInvalid)
	s.ErrorIs(s.reg.RegisterSerializerFactory("X", nil), merr.ErrRegistrationInvalid)
	s.ErrorIs(s.reg.RegisterClassFields("X", Field{Name: "a", Type: "string"}, Field{Name: "a", Type: "number"}),
		merr.ErrRegistrationInvalid)
	s.ErrorIs(s.reg.RegisterClassFields("X", Field{Name: "a", Type: "Foo<"}), merr.ErrTypeMalformed)

	s.NoError(s.reg.RegisterSerializerFactory("Array<E>", ArrayFactory))
}

func (s *RegistrySuite) TestOverwrite() {
	s.Require().NoError(s.reg.RegisterEnumConstants("Color", "RED"))
	s.Require().NoError(s.reg.RegisterEnumConstants("Color", "BLUE"))
	_, err := s.reg.Serialize("RED", "Color")
	s.ErrorIs(err, merr.ErrValueMismatch)
	out, err := s.reg.Serialize("BLUE", "Color")
	s.NoError(err)
	s.Equal("BLUE", out)
}

func (s *RegistrySuite) TestVerifyCollectsAllErrors() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Order", map[string]string{
		"customer": "Customer",
		"lines":    "Line[]",
		"note":     "string | null",
	}))
	err := s.reg.Verify("Order", "Page<Order>", "Broken<")
	s.Require().Error(err)
	errs := merr.Errors(err)
	s.Len(errs, 4)
	s.ErrorIs(err, merr.ErrTypeUnresolvable)
	s.ErrorIs(err, merr.ErrTypeMalformed)
	s.Contains(err.Error(), "customer")

	s.NoError(s.reg.Verify("string", "Dictionary<number[]>"))
}

func (s *RegistrySuite) TestConcurrentLookup() {
	s.Require().NoError(s.reg.RegisterClassSerializer("Page<T>", map[string]string{"items": "T[]"}))
	s.reg.Freeze()

	var wg sync.WaitGroup
	results := make([]Serializer, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ser, err := s.reg.Lookup("Page<number>")
			if err == nil {
				_, err = ser.Serialize(map[string]any{"items": []any{1.0}})
			}
			s.NoError(err)
			results[i] = ser
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		s.Same(results[0], r)
	}
}

func (s *RegistrySuite) TestMetrics() {
	before := testutil.ToFloat64(metrics.SerializerLookupTotal.WithLabelValues(metrics.LookupHit))
	_, err := s.reg.Lookup("number[]")
	s.Require().NoError(err)
	_, err = s.reg.Lookup("number[]")
	s.Require().NoError(err)
	s.GreaterOrEqual(testutil.ToFloat64(metrics.SerializerLookupTotal.WithLabelValues(metrics.LookupHit))-before, 1.0)

	errsBefore := testutil.ToFloat64(metrics.SerializerResolveErrorsTotal.WithLabelValues("unresolvable"))
	_, err = s.reg.Lookup("Nope")
	s.Error(err)
	s.Equal(errsBefore+1, testutil.ToFloat64(metrics.SerializerResolveErrorsTotal.WithLabelValues("unresolvable")))
}

func (s *RegistrySuite) TestSuccessfulResolutionIsQuiet() {
	lg, _, err := log.InitSilentTestLogger(s.T(), &log.Config{Level: "warn"})
	s.Require().NoError(err)
	s.reg.SetLogger(&log.MLogger{Logger: lg})

	s.Require().NoError(s.reg.RegisterClassSerializer("Pair<A,B>", map[string]string{"first": "A", "second": "B"}))
	s.Require().NoError(s.reg.Verify("Pair<string,number[]>", "Dictionary<Pair<any,boolean> | null>"))
	_, err = s.reg.Serialize(map[string]any{"first": "x", "second": []any{1.0}}, "Pair<string,number[]>")
	s.NoError(err)
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func TestEnum(t *testing.T) {
	type color string
	e, err := NewEnum("Color", map[string]any{"RED": color("r"), "GREEN": color("g")})
	require.NoError(t, err)

	out, err := e.Serialize(color("r"))
	require.NoError(t, err)
	assert.Equal(t, "RED", out)
	back, err := e.Deserialize("GREEN")
	require.NoError(t, err)
	assert.Equal(t, color("g"), back)

	_, err = e.Deserialize("BLUE")
	assert.ErrorIs(t, err, merr.ErrValueMismatch)
	_, err = e.Deserialize(1.0)
	assert.ErrorIs(t, err, merr.ErrValueMismatch)
	_, err = e.Serialize([]any{"r"})
	assert.ErrorIs(t, err, merr.ErrValueMismatch)
	_, err = e.Serialize(struct{ X any }{X: []int{1}})
	assert.ErrorIs(t, err, merr.ErrValueMismatch)
	_, err = e.Serialize([1]any{[]int{1}})
	assert.ErrorIs(t, err, merr.ErrValueMismatch)

	_, err = NewEnum("Color", map[string]any{"RED": 1, "ROUGE": 1})
	assert.ErrorIs(t, err, merr.ErrEnumConstantConflict)
	_, err = NewEnum("Color", map[string]any{"RED": []int{1}})
	assert.ErrorIs(t, err, merr.ErrEnumConstantConflict)
	_, err = NewEnum("Color", map[string]any{"RED": struct{ X any }{X: []int{1}}})
	assert.ErrorIs(t, err, merr.ErrEnumConstantConflict)
	_, err = NewEnumConstants("Color", "RED", "RED")
	assert.ErrorIs(t, err, merr.ErrEnumConstantConflict)
}

func TestTypeEnvironment(t *testing.T) {
	env := TypeEnvironment{"T": mustExpr("Person"), "U": mustExpr("T[]")}
	got, ok := env.Lookup("T")
	assert.True(t, ok)
	assert.Equal(t, "Person", got)
	_, ok = env.Lookup("X")
	assert.False(t, ok)

	sub, err := env.Substitute("Pair<T,Dictionary<U | null>>")
	require.NoError(t, err)
	assert.Equal(t, "Pair<Person,Dictionary<T[] | null>>", sub)

	_, err = env.Substitute("Pair<")
	assert.ErrorIs(t, err, merr.ErrTypeMalformed)
}

func TestArrayAndDictionaryShapes(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Serialize(map[string]any{}, "string[]")
	assert.ErrorIs(t, err, merr.ErrValueMismatch)
	_, err = reg.Serialize([]any{}, "Dictionary<string>")
	assert.ErrorIs(t, err, merr.ErrValueMismatch)

	empty := []any{}
	out, err := reg.Serialize(empty, "string[]")
	require.NoError(t, err)
	assert.Equal(t, empty, out)

	in := []any{"a"}
	out, err = reg.Serialize(in, "string[]")
	require.NoError(t, err)
	out.([]any)[0] = "changed"
	assert.Equal(t, "a", in[0])
}
