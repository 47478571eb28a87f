package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/typewire-go/pkg/apitype"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

func sampleApi() *ApiDefinition {
	api := NewApiDefinition()
	api.AddClass(ClassDefinition{
		Name: "Person",
		Properties: []Property{
			{Name: "name", Type: "string"},
			{Name: "role", Type: "Role | null"},
			{Name: "tags", Type: "string[]"},
			{Name: "avatar", Type: "Blob"},
		},
	})
	api.AddClass(ClassDefinition{
		Name:           "Page",
		TypeParameters: []string{"T"},
		Properties: []Property{
			{Name: "items", Type: "T[]"},
			{Name: "next", Type: "string | null"},
		},
	})
	api.AddClass(ClassDefinition{
		Name: "Directory",
		Properties: []Property{
			{Name: "people", Type: "Page<Person>"},
			{Name: "index", Type: "Dictionary<Person[]>"},
		},
	})
	api.AddEnum(EnumDefinition{Name: "Role", Constants: []string{"ADMIN", "USER"}})
	api.AddBlackBox("Blob", "Blob")
	return api
}

type ManifestSuite struct {
	suite.Suite
	api *ApiDefinition
}

func (s *ManifestSuite) SetupTest() {
	s.api = sampleApi()
}

func (s *ManifestSuite) TestValidate() {
	s.NoError(s.api.Validate())
	s.Len(s.api.BlackBoxes, 1)
}

func (s *ManifestSuite) TestClassHelpers() {
	page, ok := s.api.Class("Page")
	s.Require().True(ok)
	s.Equal("Page<T>", page.RegistrationName())
	s.Equal("Page<any>", page.Instantiate(apitype.Any))
	s.IsType(apitype.ParameterizedClass{}, page.Type())

	person, _ := s.api.Class("Person")
	s.Equal("Person", person.RegistrationName())
	s.Equal("Person", person.Instantiate(apitype.Any))

	t, err := s.api.PropertyType(page, page.Properties[0])
	s.NoError(err)
	s.Equal(apitype.NewArray(apitype.NewVariable("T")), t)

	t, err = s.api.PropertyType(person, person.Properties[3])
	s.NoError(err)
	s.Equal(apitype.NewBlackBox("Blob"), t)

	_, ok = s.api.Class("Missing")
	s.False(ok)
}

func (s *ManifestSuite) TestAddReplaces() {
	s.api.AddEnum(EnumDefinition{Name: "Role", Constants: []string{"GUEST"}})
	s.Len(s.api.Enums, 1)
	s.Equal([]string{"GUEST"}, s.api.Enums[0].Constants)

	s.api.AddClass(ClassDefinition{Name: "Person"})
	s.Len(s.api.Classes, 3)
}

func (s *ManifestSuite) TestValidateErrors() {
	cases := []struct {
		name   string
		mutate func(api *ApiDefinition)
		target error
	}{
		{"unknown class", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "X", Properties: []Property{{Name: "y", Type: "Y"}}})
		}, merr.ErrTypeUnresolvable},
		{"bare generic", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "X", Properties: []Property{{Name: "p", Type: "Page"}}})
		}, merr.ErrTypeArityMismatch},
		{"wrong arity", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "X", Properties: []Property{{Name: "p", Type: "Page<string,string>"}}})
		}, merr.ErrTypeArityMismatch},
		{"malformed", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "X", Properties: []Property{{Name: "p", Type: "Page<"}}})
		}, merr.ErrTypeMalformed},
		{"duplicate property", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "X", Properties: []Property{{Name: "a", Type: "string"}, {Name: "a", Type: "number"}}})
		}, merr.ErrManifestInvalid},
		{"duplicate name", func(api *ApiDefinition) {
			api.AddEnum(EnumDefinition{Name: "Person", Constants: []string{"A"}})
		}, merr.ErrManifestInvalid},
		{"reserved name", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "string"})
		}, merr.ErrManifestInvalid},
		{"bad type parameter", func(api *ApiDefinition) {
			api.AddClass(ClassDefinition{Name: "X", TypeParameters: []string{"T", "T"}})
		}, merr.ErrManifestInvalid},
		{"empty enum", func(api *ApiDefinition) {
			api.AddEnum(EnumDefinition{Name: "Empty"})
		}, merr.ErrManifestInvalid},
		{"duplicate constant", func(api *ApiDefinition) {
			api.AddEnum(EnumDefinition{Name: "Twice", Constants: []string{"A", "A"}})
		}, merr.ErrEnumConstantConflict},
	}
	for _, c := range cases {
		s.Run(c.name, func() {
			api := sampleApi()
			c.mutate(api)
			s.ErrorIs(api.Validate(), c.target)
		})
	}
}

func (s *ManifestSuite) TestRoundTrip() {
	for _, format := range []ManifestFormat{ManifestYAML, ManifestJSON} {
		var buf bytes.Buffer
		s.Require().NoError(WriteManifest(&buf, s.api, format))

		got, err := ReadManifest(bytes.NewReader(buf.Bytes()), format)
		s.Require().NoError(err, string(format))

		want := sampleApi()
		want.Normalize()
		s.Equal(want, got, string(format))
	}
}

func (s *ManifestSuite) TestWriteIsStable() {
	var a, b bytes.Buffer
	s.Require().NoError(WriteManifest(&a, s.api, ManifestJSON))

	shuffled := sampleApi()
	shuffled.Classes[0], shuffled.Classes[2] = shuffled.Classes[2], shuffled.Classes[0]
	s.Require().NoError(WriteManifest(&b, shuffled, ManifestJSON))
	s.Equal(a.String(), b.String())

	// 写出不改变调用方的顺序。
	s.Equal(apitype.TypeName("Directory"), shuffled.Classes[0].Name)
}

func (s *ManifestSuite) TestVersion() {
	manifest := func(version string) string {
		return "formatVersion: " + version + "\nenums:\n  - name: Role\n    constants: [A]\n"
	}
	_, err := ParseManifest([]byte(manifest("1.4.0")), ManifestYAML)
	s.NoError(err)
	_, err = ParseManifest([]byte(manifest("v1")), ManifestYAML)
	s.NoError(err)

	_, err = ParseManifest([]byte(manifest("2.0.0")), ManifestYAML)
	s.ErrorIs(err, merr.ErrManifestVersion)
	_, err = ParseManifest([]byte(manifest("banana")), ManifestYAML)
	s.ErrorIs(err, merr.ErrManifestVersion)
	_, err = ParseManifest([]byte("enums: []\n"), ManifestYAML)
	s.ErrorIs(err, merr.ErrManifestVersion)
}

func (s *ManifestSuite) TestUnknownFields() {
	_, err := ParseManifest([]byte("formatVersion: 1.0.0\nextra: true\n"), ManifestYAML)
	s.ErrorIs(err, merr.ErrManifestInvalid)
	_, err = ParseManifest([]byte(`{"formatVersion":"1.0.0","extra":true}`), ManifestJSON)
	s.ErrorIs(err, merr.ErrManifestInvalid)
	_, err = ParseManifest([]byte(`{}`), "toml")
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func (s *ManifestSuite) TestFiles() {
	dir := s.T().TempDir()
	for _, name := range []string{"api.yaml", "api.yml", "api.json"} {
		path := filepath.Join(dir, name)
		s.Require().NoError(SaveManifest(path, s.api))
		got, err := LoadManifest(path)
		s.Require().NoError(err)
		s.Len(got.Classes, 3)
	}

	s.ErrorIs(SaveManifest(filepath.Join(dir, "api.toml"), s.api), merr.ErrManifestInvalid)
	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	s.ErrorIs(err, os.ErrNotExist)
}

func TestManifest(t *testing.T) {
	suite.Run(t, new(ManifestSuite))
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("a/B.YML")
	require.NoError(t, err)
	assert.Equal(t, ManifestYAML, f)
	f, err = FormatOf("x.json")
	require.NoError(t, err)
	assert.Equal(t, ManifestJSON, f)
	_, err = FormatOf("x")
	assert.ErrorIs(t, err, merr.ErrManifestInvalid)
}
