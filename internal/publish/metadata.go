package publish

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/config"
)

const defaultTitleTemplate = "compilation {date}"

// BuildMetadata renders publish metadata for a run finishing at the given
// time. The title template's {date} placeholder is substituted before title
// casing, so "daily compilation {date}" becomes "Daily Compilation 2024-03-05".
func BuildMetadata(cfg *config.Config, at time.Time) Metadata {
	template := strings.TrimSpace(cfg.Publish.TitleTemplate)
	if template == "" {
		template = defaultTitleTemplate
	}
	title := strings.ReplaceAll(template, "{date}", at.Format("2006-01-02"))
	title = cases.Title(language.English).String(title)
	return Metadata{
		Title:       title,
		Description: cfg.Publish.Description,
		Tags:        slices.Clone(cfg.Publish.Tags),
	}
}
