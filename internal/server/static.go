package server

import (
	"bytes"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"
)

// reloadPath is where browsers connect for live-reload notifications.
const reloadPath = "/_stencil/ws"

const reloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "` + reloadPath + `");
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === "reload") {
      location.reload();
    } else if (msg.type === "build_error") {
      console.error("stencil: build failed\n" + msg.content);
    }
  };
})();
</script>`

// staticHandler serves the publish directory, injecting the reload script
// into HTML documents when live reload is on.
type staticHandler struct {
	fs         afero.Fs
	root       string
	files      http.Handler
	liveReload bool
}

func newStaticHandler(fs afero.Fs, root string, liveReload bool) *staticHandler {
	return &staticHandler{
		fs:         fs,
		root:       root,
		files:      http.FileServer(afero.NewHttpFs(fs).Dir(root)),
		liveReload: liveReload,
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.liveReload || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		h.files.ServeHTTP(w, r)
		return
	}

	file, ok := h.htmlFile(r.URL.Path)
	if !ok {
		h.files.ServeHTTP(w, r)
		return
	}

	data, err := afero.ReadFile(h.fs, file)
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}

	body := InjectReloadScript(data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(body)
	}
}

// htmlFile maps a request path to the HTML file it would serve, if any.
// Directory requests without a trailing slash are left to the file server so
// it can redirect.
func (h *staticHandler) htmlFile(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	file := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := h.fs.Stat(file)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			return "", false
		}
		file = filepath.Join(file, "index.html")
		if info, err = h.fs.Stat(file); err != nil || info.IsDir() {
			return "", false
		}
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".html", ".htm":
		return file, true
	default:
		return "", false
	}
}

// InjectReloadScript inserts the live-reload script before the last closing
// body tag of doc, or appends it when the document has none.
func InjectReloadScript(doc []byte) []byte {
	offset := closingBodyOffset(doc)
	if offset < 0 {
		out := make([]byte, 0, len(doc)+len(reloadScript))
		out = append(out, doc...)
		return append(out, reloadScript...)
	}

	var b bytes.Buffer
	b.Grow(len(doc) + len(reloadScript))
	b.Write(doc[:offset])
	b.WriteString(reloadScript)
	b.Write(doc[offset:])
	return b.Bytes()
}

// closingBodyOffset returns the byte offset of the last </body> end tag, or
// -1. The tokenizer keeps tags inside scripts and comments from matching.
func closingBodyOffset(doc []byte) int {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset, found := 0, -1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return found
		}

		raw := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if string(name) == "body" {
				found = offset
			}
		}
		offset += raw
	}
}
