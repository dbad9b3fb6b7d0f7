package domain

import "strings"

type Platform struct {
	Slug string `yaml:"slug" json:"slug"` // table prefix: <slug>_jobs
	Name string `yaml:"name" json:"name"`
}

// TableName is the REST table holding this platform's postings.
func (p Platform) TableName() string {
	return p.Slug + "_jobs"
}

// DisplayName falls back to a capitalized slug when no name is configured.
func (p Platform) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Slug == "" {
		return ""
	}
	return strings.ToUpper(p.Slug[:1]) + p.Slug[1:]
}
