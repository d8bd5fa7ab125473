// Package markdown renders long-form section text with goldmark and loads
// podcast pages authored as Markdown files with front matter.
package markdown
