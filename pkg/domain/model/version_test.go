package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

func TestParseVersion(t *testing.T) {
	t.Run("Valid versions", func(t *testing.T) {
		tests := []struct {
			input string
			want  model.Version
		}{
			{"0.0.0", model.Version{Major: 0, Minor: 0, Patch: 0}},
			{"1.2.3", model.Version{Major: 1, Minor: 2, Patch: 3}},
			{"10.20.30", model.Version{Major: 10, Minor: 20, Patch: 30}},
			{"999.999.999", model.Version{Major: 999, Minor: 999, Patch: 999}},
		}
		for _, tt := range tests {
			v, err := model.ParseVersion(tt.input)
			gt.NoError(t, err)
			gt.Value(t, v).Equal(tt.want)
			gt.Value(t, v.String()).Equal(tt.input)
		}
	})

	t.Run("Malformed versions", func(t *testing.T) {
		inputs := []string{
			"",
			"1",
			"1.2",
			"1.2.3.4",
			"v1.2.3",
			"1.2.3-rc",
			"1.2.3 ",
			" 1.2.3",
			"1.2.x",
			"a.b.c",
			"-1.2.3",
			"1..3",
		}
		for _, input := range inputs {
			_, err := model.ParseVersion(input)
			gt.Error(t, err)
			gt.Value(t, errors.Is(err, types.ErrVersionMalformed)).Equal(true)
		}
	})
}

func TestVersionTagName(t *testing.T) {
	v, err := model.ParseVersion("1.2.3")
	gt.NoError(t, err)
	gt.Value(t, v.TagName()).Equal("v1.2.3")
}

func TestVersionEqual(t *testing.T) {
	a := model.Version{Major: 1, Minor: 2, Patch: 3}
	gt.Value(t, a.Equal(model.Version{Major: 1, Minor: 2, Patch: 3})).Equal(true)
	gt.Value(t, a.Equal(model.Version{Major: 1, Minor: 2, Patch: 4})).Equal(false)
	gt.Value(t, a.Equal(model.Version{Major: 2, Minor: 2, Patch: 3})).Equal(false)
}

func TestExtractVersion(t *testing.T) {
	t.Run("JSON manifest", func(t *testing.T) {
		v, err := model.ExtractVersion([]byte(`{"name":"pkg","version":"1.2.3"}`))
		gt.NoError(t, err)
		gt.Value(t, v.String()).Equal("1.2.3")
	})

	t.Run("Bare version file", func(t *testing.T) {
		v, err := model.ExtractVersion([]byte("2.0.0\n"))
		gt.NoError(t, err)
		gt.Value(t, v.String()).Equal("2.0.0")
	})

	t.Run("JSON without version field", func(t *testing.T) {
		_, err := model.ExtractVersion([]byte(`{"name":"pkg"}`))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrVersionMalformed)).Equal(true)
	})

	t.Run("Broken JSON", func(t *testing.T) {
		_, err := model.ExtractVersion([]byte(`{"version":`))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrVersionMalformed)).Equal(true)
	})

	t.Run("JSON with loose version value", func(t *testing.T) {
		_, err := model.ExtractVersion([]byte(`{"version":"v1.2.3"}`))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrVersionMalformed)).Equal(true)
	})
}
