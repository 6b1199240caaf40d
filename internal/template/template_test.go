// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package template

import (
	"testing"

	"github.com/wneessen/geonear/internal/config"
	"github.com/wneessen/geonear/internal/geocode"
)

var testResult = geocode.Result{
	State:      "Maharashtra",
	District:   "Mumbai City",
	Location:   "Mumbai",
	DistanceKm: 0.50617,
}

func TestNew(t *testing.T) {
	t.Run("new template succeeds", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		tpl, err := New(conf)
		if err != nil {
			t.Fatalf("failed to create template: %s", err)
		}
		if tpl == nil {
			t.Fatal("expected template to be non-nil")
		}
	})
	t.Run("parsing description template fails", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		conf.Templates.Description = "{{ .Location }"
		if _, err = New(conf); err == nil {
			t.Fatal("expected template parsing to fail, but didn't")
		}
	})
}

func TestTemplates_RenderDescription(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{
			"default description",
			config.DefaultDescriptionTpl,
			"You are currently near Mumbai, Mumbai City, Maharashtra.",
		},
		{
			"distance with float format",
			"{{.Location}} ({{floatFormat .DistanceKm 2}} km)",
			"Mumbai (0.51 km)",
		},
		{
			"case functions",
			"{{uc .State}}/{{lc .District}}",
			"MAHARASHTRA/mumbai city",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf, err := config.New()
			if err != nil {
				t.Fatalf("failed to create config: %s", err)
			}
			conf.Templates.Description = tc.tpl
			tpl, err := New(conf)
			if err != nil {
				t.Fatalf("failed to create template: %s", err)
			}
			got, err := tpl.RenderDescription(testResult)
			if err != nil {
				t.Fatalf("failed to render template: %s", err)
			}
			if got != tc.want {
				t.Errorf("expected rendered template to be %q, got %q", tc.want, got)
			}
		})
	}
	t.Run("rendering unknown fields fails", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		conf.Templates.Description = "{{.Country}}"
		tpl, err := New(conf)
		if err != nil {
			t.Fatalf("failed to create template: %s", err)
		}
		if _, err = tpl.RenderDescription(testResult); err == nil {
			t.Error("expected rendering to fail, but didn't")
		}
	})
}
