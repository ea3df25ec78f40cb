// Package internal contains the implementation packages for stencil.
//
// # Package Organization
//
// Packages are listed leaves first:
//
//   - errors: the SiteError type every build failure is reported as
//   - logging: structured logging over log/slog
//   - cache: the path-keyed store behind the template and partial caches
//   - fsutil: path resolution and tree copying on an afero.Fs
//   - templates: template loading and inheritance resolution
//   - partials: partial loading and inclusion resolution
//   - page: the per-page pipeline from source file to output file
//   - site: discovery, staged page builds, publishing and asset copying
//   - config: settings from .stencil.yml, the environment and flags
//   - watcher: fsnotify watching, debouncing and serialised rebuilds
//   - server: the development server and its live-reload hub
//   - scaffold: new sites from the embedded skeleton or a local template
//   - version: build identity
//
// # Build Flow
//
// A build clears both caches, discovers pages under the site root, builds
// each page into a staging directory and only then replaces the output
// directory. Assets are copied separately and never overwrite existing
// output files.
//
// The watcher calls site.Build after every batch of changes; the server
// tells connected browsers to reload after each successful rebuild.
package internal
