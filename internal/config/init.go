package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# assetbuilder configuration

[repository]
# Public URL prefix for all generated links, e.g. https://user.github.io/repo
base_url = "https://assets.example.com"
# Custom domain; written to dist/CNAME when set (src/CNAME takes precedence).
domain = ""

[build]
images_dir = "images"
css_dir = "css"
js_dir = "js"
data_dir = "data"
markdown_dir = "md"

[tools]
image_converter = ["cwebp", "-q", "80"]
css_minifier = ["cleancss"]
js_minifier = ["terser"]

[paths]
source_dir = "src"
output_dir = "dist"
links_dir = "links"

[history]
path = ".assetbuilder/history.db"
disabled = false
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
