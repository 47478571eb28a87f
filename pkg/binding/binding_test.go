package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/typewire-go/pkg/model"
	"github.com/lk2023060901/typewire-go/pkg/serializer"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

func directoryApi() *model.ApiDefinition {
	api := model.NewApiDefinition()
	api.AddClass(model.ClassDefinition{
		Name: "Person",
		Properties: []model.Property{
			{Name: "name", Type: "string"},
			{Name: "role", Type: "Role | null"},
			{Name: "avatar", Type: "Blob"},
		},
	})
	api.AddClass(model.ClassDefinition{
		Name:           "Page",
		TypeParameters: []string{"T"},
		Properties: []model.Property{
			{Name: "items", Type: "T[]"},
			{Name: "total", Type: "number"},
		},
	})
	api.AddClass(model.ClassDefinition{
		Name:       "Directory",
		Properties: []model.Property{{Name: "people", Type: "Page<Person>"}},
	})
	api.AddEnum(model.EnumDefinition{Name: "Role", Constants: []string{"ADMIN", "USER"}})
	api.AddBlackBox("Blob")
	return api
}

type BindingSuite struct {
	suite.Suite
	reg *serializer.Registry
	api *model.ApiDefinition
}

func (s *BindingSuite) SetupTest() {
	s.reg = serializer.NewRegistry()
	s.api = directoryApi()
	s.Require().NoError(s.api.Validate())
}

func (s *BindingSuite) TestBindAndRoundTrip() {
	s.Require().NoError(Bind(s.reg, s.api))

	blob := []byte{1, 2, 3}
	value := map[string]any{
		"people": map[string]any{
			"items": []any{
				map[string]any{"name": "ada", "role": "ADMIN", "avatar": blob},
				map[string]any{"name": "bob", "role": nil},
			},
			"total": 2.0,
		},
	}
	out, err := s.reg.Serialize(value, "Directory")
	s.Require().NoError(err)
	back, err := s.reg.Deserialize(out, "Directory")
	s.Require().NoError(err)
	s.Equal(value, back)

	_, err = s.reg.Serialize(map[string]any{"role": "GUEST"}, "Person")
	s.ErrorIs(err, merr.ErrValueMismatch)
}

func (s *BindingSuite) TestRoots() {
	s.Equal([]string{"Blob", "Directory", "Page<any>", "Person", "Role"}, Roots(s.api))
}

func (s *BindingSuite) TestVerify() {
	s.Require().NoError(Bind(s.reg, s.api))
	report, err := Verify(context.Background(), s.reg, s.api, 2)
	s.NoError(err)
	s.Equal(Roots(s.api), report.Verified)
	s.Empty(report.Failed)
	s.True(s.reg.Frozen())
}

func (s *BindingSuite) TestVerifyReportsMissing() {
	// 不注册 Role 与 Blob，使 Person 与 Directory 校验失败。
	partial := directoryApi()
	partial.Enums = nil
	partial.BlackBoxes = nil
	s.Require().NoError(Bind(s.reg, partial))

	report, err := VerifyIntent(s.reg, s.api)
	s.ErrorIs(err, merr.ErrTypeUnresolvable)
	s.Equal([]string{"Blob", "Directory", "Person", "Role"}, report.Failed)
	s.Equal([]string{"Page<any>"}, report.Verified)
}

func (s *BindingSuite) TestVerifyCancelled() {
	s.Require().NoError(Bind(s.reg, s.api))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Verify(ctx, s.reg, s.api, 1)
	s.ErrorIs(err, context.Canceled)
	s.Empty(report.Verified)
}

func (s *BindingSuite) TestBindAfterFreeze() {
	s.reg.Freeze()
	s.ErrorIs(Bind(s.reg, s.api), merr.ErrRegistryFrozen)
}

func TestBinding(t *testing.T) {
	suite.Run(t, new(BindingSuite))
}
