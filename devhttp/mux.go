package devhttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"goji.io"
	"goji.io/pat"
)

// Multiplexer mounts many device controllers under their endpoints.
type Multiplexer struct {
	stems   []string
	httpers []HTTPer
}

// Add mounts h's routes under stem, e.g. stem "lab/lockin" serves
// /lab/lockin/read and friends.
func (m *Multiplexer) Add(stem string, h HTTPer) {
	m.stems = append(m.stems, stem)
	m.httpers = append(m.httpers, h)
}

// BuildMux constructs the root mux with every device bound under its stem.
// The root also serves /endpoints, a supergraph mapping each stem to the
// routes below it.
func (m *Multiplexer) BuildMux() *goji.Mux {
	root := goji.NewMux()
	supergraph := map[string][]string{}
	for idx := 0; idx < len(m.stems); idx++ {
		stem := m.stems[idx]
		httper := m.httpers[idx]
		mux := goji.SubMux()
		if !strings.HasPrefix(stem, "/") {
			stem = "/" + stem
		}
		if !strings.HasSuffix(stem, "/") {
			stem = stem + "/"
		}
		supergraph[stem] = httper.RT().Endpoints()
		stem = stem + "*"
		root.Handle(pat.New(stem), mux)
		httper.RT().Bind(mux)
	}
	root.HandleFunc(pat.Get("/endpoints"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(supergraph); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
