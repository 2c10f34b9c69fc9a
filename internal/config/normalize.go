package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments and warnings from normalization.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerated fields before defaults are
// applied. Unknown log settings fall back with a warning; an unknown
// missing_key is an error because it changes rendered output.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	if raw := strings.TrimSpace(string(c.Logging.Level)); raw != "" {
		lvl := NormalizeLogLevel(raw)
		if !strings.EqualFold(raw, string(lvl)) && !strings.EqualFold(raw, "warning") {
			res.Warnings = append(res.Warnings, warnUnknown("logging.level", raw, string(lvl)))
		}
		c.Logging.Level = lvl
	}
	if raw := strings.TrimSpace(string(c.Logging.Format)); raw != "" {
		f := NormalizeLogFormat(raw)
		if !strings.EqualFold(raw, string(f)) {
			res.Warnings = append(res.Warnings, warnUnknown("logging.format", raw, string(f)))
		}
		c.Logging.Format = f
	}

	mk, err := missingKeyNormalizer.NormalizeWithError(string(c.Render.MissingKey))
	if err != nil {
		return nil, validationError("render.missing_key", err.Error())
	}
	c.Render.MissingKey = mk

	c.Render.Engine = strings.ToLower(strings.TrimSpace(c.Render.Engine))
	c.Post.LineFeed = strings.ToLower(strings.TrimSpace(c.Post.LineFeed))
	c.Post.Charset = strings.TrimSpace(c.Post.Charset)
	for i, ext := range c.Post.CacheBusterExts {
		c.Post.CacheBusterExts[i] = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	}
	c.TemplateExt = normalizeExt(c.TemplateExt)
	c.OutputExt = normalizeExt(c.OutputExt)
	return res, nil
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func warnUnknown(field, value, fallback string) string {
	return fmt.Sprintf("%s: unknown value %q, using %q", field, value, fallback)
}
