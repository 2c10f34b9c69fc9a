package config

import (
	"errors"
	"io/fs"
	"os"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// Sample is the annotated configuration written by 'pagefactory init'.
const Sample = `version: "1"
root: factory                 # template key k -> <root>/<k><template_ext>
manifests: ["factory/**/*.json"]
src: src                      # base of changed-file identifiers
dest: htdocs                  # output root
public_root: htdocs           # base for relative paths and cache-buster lookups
# partials: templates         # templates available to every page
template_ext: .tmpl
output_ext: .html
marker: "{{vars}}"
render:
  engine: gotmpl
  missing_key: error          # error | zero | default
  options: {}                 # global template data
post:
  relative_path: false
  cache_buster_exts: []       # e.g. [css, js]
  line_feed: lf               # lf | crlf | cr | keep
  charset: utf8               # any WHATWG label, e.g. shift_jis
build:
  concurrency: 0              # 0 = number of CPUs
  manifest_concurrency: 2
  dry_run: false
watch:
  debounce: 300ms
  full_rebuild_every: 0s      # periodic full pass; 0 disables
  metrics_addr: ""            # e.g. :9464, serves /metrics
  viewing_update: true        # source changes only re-render affected pages
  viewing_update_templates: false
events:
  nats_url: ""                # e.g. nats://127.0.0.1:4222
  subject: pagefactory.files
logging:
  level: info
  format: text
`

// WriteSample writes Sample to path. An existing file is only replaced when force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return foundationerrors.ValidationError("configuration file already exists").
				WithContext("path", path).
				WithContext("hint", "use --force to overwrite").
				Build()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "stat config file").Build()
		}
	}
	if err := os.WriteFile(path, []byte(Sample), 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
