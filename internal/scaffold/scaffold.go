// Package scaffold creates new sites, either from the embedded default
// skeleton or by copying a local template directory.
package scaffold

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/conneroisu/stencil/internal/config"
	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/fsutil"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/site"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultTemplate is recorded as the template path of sites created from the
// embedded skeleton.
const DefaultTemplate = "embedded:default"

//go:embed all:skeleton
var skeleton embed.FS

const skeletonRoot = "skeleton"

// Options controls site creation.
type Options struct {
	// Template is a local directory to copy. Empty means the embedded
	// skeleton.
	Template string
	// Title defaults to the target directory name, title-cased.
	Title  string
	Logger logging.Logger
}

// skeletonData is passed to every embedded skeleton file.
type skeletonData struct {
	Title string
}

// Create makes a new site in dir and returns it loaded. The target must be
// missing or empty.
func Create(fs afero.Fs, dir string, opts Options) (*site.Site, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("scaffold")

	target, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.ScaffoldTarget(dir, err)
	}
	if err := checkTarget(fs, target); err != nil {
		return nil, err
	}

	title := opts.Title
	if title == "" {
		title = TitleFromDir(target)
	}

	templatePath := DefaultTemplate
	if opts.Template != "" {
		templatePath, err = filepath.Abs(opts.Template)
		if err != nil {
			return nil, errors.InvalidSite(opts.Template, err)
		}
		if err := copyTemplate(fs, templatePath, target); err != nil {
			return nil, err
		}
	} else if err := writeSkeleton(fs, target, skeletonData{Title: title}); err != nil {
		return nil, err
	}

	configPath := filepath.Join(target, config.FileName)
	exists, err := afero.Exists(fs, configPath)
	if err != nil {
		return nil, errors.ScaffoldTarget(configPath, err)
	}
	if !exists {
		if err := writeConfig(fs, configPath, title); err != nil {
			return nil, err
		}
	}

	logger.Info(context.Background(), "Created site",
		"dir", target,
		"template", templatePath,
		"title", title)

	return site.Open(target,
		site.WithFs(fs),
		site.WithLogger(logger),
		site.WithTemplatePath(templatePath))
}

// TitleFromDir turns a directory name such as "my-blog" into "My Blog".
func TitleFromDir(dir string) string {
	name := filepath.Base(filepath.Clean(dir))
	if name == string(filepath.Separator) || name == "." {
		name = ""
	}
	name = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "My Site"
	}
	return cases.Title(language.English).String(name)
}

func checkTarget(fs afero.Fs, target string) error {
	info, err := fs.Stat(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.ScaffoldTarget(target, err)
	}
	if !info.IsDir() {
		return errors.ScaffoldTarget(target, fmt.Errorf("not a directory"))
	}

	empty, err := afero.IsEmpty(fs, target)
	if err != nil {
		return errors.ScaffoldTarget(target, err)
	}
	if !empty {
		return errors.ScaffoldTarget(target, fmt.Errorf("directory is not empty"))
	}
	return nil
}

// writeSkeleton renders every embedded file through text/template.
func writeSkeleton(fs afero.Fs, target string, data skeletonData) error {
	return iofs.WalkDir(skeleton, skeletonRoot, func(name string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(name, skeletonRoot), "/")
		dst := filepath.Join(target, filepath.FromSlash(rel))
		if d.IsDir() {
			if err := fs.MkdirAll(dst, 0o755); err != nil {
				return errors.ScaffoldTarget(dst, err)
			}
			return nil
		}

		raw, err := skeleton.ReadFile(name)
		if err != nil {
			return err
		}

		tmpl, err := template.New(path.Base(name)).Parse(string(raw))
		if err != nil {
			return fmt.Errorf("parse skeleton file %s: %w", rel, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("render skeleton file %s: %w", rel, err)
		}

		if err := afero.WriteFile(fs, dst, buf.Bytes(), 0o644); err != nil {
			return errors.ScaffoldTarget(dst, err)
		}
		return nil
	})
}

// copyTemplate copies a local template directory verbatim, leaving out
// hidden entries such as .git.
func copyTemplate(fs afero.Fs, src, target string) error {
	exists, err := afero.DirExists(fs, src)
	if err != nil || !exists {
		if err == nil {
			err = fmt.Errorf("template directory not found")
		}
		return errors.InvalidSite(src, err)
	}
	if fsutil.IsWithin(target, src) {
		return errors.ScaffoldTarget(target, fmt.Errorf("target is inside template %s", src))
	}

	return afero.Walk(fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p != src && strings.HasPrefix(info.Name(), ".") && info.Name() != config.FileName {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst, err := fsutil.RelativeTarget(src, p, target)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fs.MkdirAll(dst, 0o755)
		}
		if err := fsutil.CopyFile(fs, p, dst); err != nil {
			return errors.ScaffoldTarget(dst, err)
		}
		return nil
	})
}

// fileConfig is the on-disk shape of .stencil.yml. Durations are written as
// strings so the file reads naturally.
type fileConfig struct {
	Site   config.SiteConfig   `yaml:"site"`
	Build  config.BuildConfig  `yaml:"build"`
	Server config.ServerConfig `yaml:"server"`
	Watch  fileWatchConfig     `yaml:"watch"`
	Log    config.LogConfig    `yaml:"log"`
}

type fileWatchConfig struct {
	Debounce string   `yaml:"debounce"`
	Ignore   []string `yaml:"ignore"`
}

func writeConfig(fs afero.Fs, path, title string) error {
	d := config.Default()
	d.Site.Title = title

	out, err := yaml.Marshal(fileConfig{
		Site:   d.Site,
		Build:  d.Build,
		Server: d.Server,
		Watch: fileWatchConfig{
			Debounce: d.Watch.Debounce.String(),
			Ignore:   d.Watch.Ignore,
		},
		Log: d.Log,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", config.FileName, err)
	}

	if err := afero.WriteFile(fs, path, out, 0o644); err != nil {
		return errors.ScaffoldTarget(path, err)
	}
	return nil
}
