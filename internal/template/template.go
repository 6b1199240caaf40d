// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/wneessen/geonear/internal/config"
	"github.com/wneessen/geonear/internal/geocode"
)

type Templates struct {
	Description *template.Template
}

func New(conf *config.Config) (*Templates, error) {
	tpls := new(Templates)

	tpl, err := template.New("description").Funcs(templateFuncMap()).Parse(conf.Templates.Description)
	if err != nil {
		return tpls, fmt.Errorf("failed to parse description template: %w", err)
	}
	tpls.Description = tpl

	return tpls, nil
}

// RenderDescription renders the human-readable sentence for a geocoding result.
func (t *Templates) RenderDescription(result geocode.Result) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := t.Description.Execute(buf, result); err != nil {
		return "", fmt.Errorf("failed to render description template: %w", err)
	}
	return buf.String(), nil
}

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"floatFormat": floatFormat,
		"lc":          strings.ToLower,
		"uc":          strings.ToUpper,
	}
}

func floatFormat(val float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, val)
}
