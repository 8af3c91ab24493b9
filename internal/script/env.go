// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package script

// Variable names bound into every program.
const (
	VarPath     = "path"
	VarPage     = "page"
	VarList     = "list"
	VarTitle    = "title"
	VarType     = "type"
	VarCreated  = "created"
	VarModified = "modified"
)

// Env is the variable environment of one execution.
type Env struct {
	// Path is the page's site-relative path, e.g. "blog/2024/01/entry".
	Path string

	// Page is the full page key (URL).
	Page string

	// List is the full key of the list being evaluated.
	List string

	// Title is the page title, or "".
	Title string

	// Type is the path of the page's type, or "".
	Type string

	// Created and Modified are microsecond timestamps.
	Created  int64
	Modified int64
}

// parameters converts the environment to govaluate's map form. Numbers are
// float64 as govaluate requires.
func (e Env) parameters() map[string]interface{} {
	return map[string]interface{}{
		VarPath:     e.Path,
		VarPage:     e.Page,
		VarList:     e.List,
		VarTitle:    e.Title,
		VarType:     e.Type,
		VarCreated:  float64(e.Created),
		VarModified: float64(e.Modified),
	}
}
