// Package filestore persists large array readings to files and tracks them
// through asset documents, so a data stream carries a datum reference
// instead of the samples themselves.
package filestore

// Resource describes one staged file series.  Documents in the series
// reference it by UID.
type Resource struct {
	Spec           string                 `json:"spec"`
	Root           string                 `json:"root"`
	ResourcePath   string                 `json:"resource_path"`
	ResourceKwargs map[string]interface{} `json:"resource_kwargs"`
	PathSemantics  string                 `json:"path_semantics"`
	UID            string                 `json:"uid"`
}

// Datum locates one captured array inside a resource.
type Datum struct {
	Resource    string                 `json:"resource"`
	DatumID     string                 `json:"datum_id"`
	DatumKwargs map[string]interface{} `json:"datum_kwargs"`
}
