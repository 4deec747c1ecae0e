package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"sheetstore/pkg/config"
	"sheetstore/pkg/record"
	"sheetstore/pkg/table"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 10 << 20

type tableHandle struct {
	specs []record.FieldSpec
	table *table.Table[record.Values]
}

// Server exposes the configured tables over HTTP.
type Server struct {
	tables map[string]tableHandle
	names  []string
}

func NewServer(store table.GridStore, tables []config.Table, mode table.InputMode) (*Server, error) {
	s := &Server{tables: make(map[string]tableHandle, len(tables))}
	for _, t := range tables {
		specs := t.Specs()
		schema, err := record.DynamicSchema(specs)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
		s.tables[t.Name] = tableHandle{
			specs: specs,
			table: table.New(store, t.Target(), schema, table.WithInputMode(mode)),
		}
		s.names = append(s.names, t.Name)
	}
	sort.Strings(s.names)
	return s, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) getIndex(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string][]string{"tables": s.names})
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	records, err := h.table.Read(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}
	// A row whose cells are all empty decodes without allocating its map.
	for i, rec := range records {
		if rec == nil {
			records[i] = record.Values{}
		}
	}
	sendJSON(w, http.StatusOK, records)
}

func (s *Server) putTable(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body []map[string]any
	if err := decodeBody(w, r, &body); err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	records := make([]record.Values, len(body))
	for i, obj := range body {
		v, err := toValues(h.specs, obj)
		if err != nil {
			sendJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("record %d: %v", i, err)})
			return
		}
		records[i] = v
	}
	if err := h.table.Replace(r.Context(), records); err != nil {
		sendError(w, err)
		return
	}
	log.WithFields(log.Fields{"table": chi.URLParam(r, "name"), "records": len(records)}).Info("Replaced table")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postTable(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body map[string]any
	if err := decodeBody(w, r, &body); err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	v, err := toValues(h.specs, body)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := h.table.Append(r.Context(), v); err != nil {
		sendError(w, err)
		return
	}
	log.WithField("table", chi.URLParam(r, "name")).Debug("Appended record")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (tableHandle, bool) {
	name := chi.URLParam(r, "name")
	h, ok := s.tables[name]
	if !ok {
		sendJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown table %q", name)})
	}
	return h, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// toValues checks obj against the declared fields and converts every value
// to its canonical type. Keys that are not declared are ignored.
func toValues(specs []record.FieldSpec, obj map[string]any) (record.Values, error) {
	out := make(record.Values, len(specs))
	for _, spec := range specs {
		v, ok := obj[spec.Name]
		if !ok || v == nil {
			if spec.Optional {
				continue
			}
			return nil, fmt.Errorf("missing field %q", spec.Name)
		}
		c, err := spec.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", spec.Name, err)
		}
		out[spec.Name] = c
	}
	return out, nil
}

func sendError(w http.ResponseWriter, err error) {
	var storeErr *table.StoreError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, table.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, record.ErrEmptyGrid),
		errors.Is(err, record.ErrMissingColumn),
		errors.Is(err, record.ErrTypeMismatch),
		errors.Is(err, record.ErrRowWidthMismatch):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &storeErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	}
	sendJSON(w, status, errorBody{Error: err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Unable to encode response")
		sendResponse(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	sendResponse(w, status, body)
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
