package ingest

import (
	"errors"
	"io"
	"net/http"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/ollystack/otell/internal/pipeline"
)

// RegisterHTTP attaches the OTLP HTTP endpoints to mux, accepting both
// application/x-protobuf and application/json (decoded via protojson, the
// same ecosystem package backing the protobuf dependency already in use).
func RegisterHTTP(mux *http.ServeMux, in *Ingestor) {
	mux.HandleFunc("/v1/logs", in.handleLogsHTTP)
	mux.HandleFunc("/v1/traces", in.handleTracesHTTP)
	mux.HandleFunc("/v1/metrics", in.handleMetricsHTTP)
}

func (in *Ingestor) handleLogsHTTP(w http.ResponseWriter, r *http.Request) {
	var req collectorlogspb.ExportLogsServiceRequest
	isJSON, err := decodeBody(r, &req)
	if err != nil {
		httpError(w, "logs", http.StatusBadRequest, err)
		return
	}
	resp, err := in.IngestLogs(r.Context(), &req, "http")
	if err != nil {
		writeIngestError(w, "logs", err)
		return
	}
	writeResponse(w, resp, isJSON)
}

func (in *Ingestor) handleTracesHTTP(w http.ResponseWriter, r *http.Request) {
	var req collectortracepb.ExportTraceServiceRequest
	isJSON, err := decodeBody(r, &req)
	if err != nil {
		httpError(w, "traces", http.StatusBadRequest, err)
		return
	}
	resp, err := in.IngestSpans(r.Context(), &req, "http")
	if err != nil {
		writeIngestError(w, "traces", err)
		return
	}
	writeResponse(w, resp, isJSON)
}

func (in *Ingestor) handleMetricsHTTP(w http.ResponseWriter, r *http.Request) {
	var req collectormetricspb.ExportMetricsServiceRequest
	isJSON, err := decodeBody(r, &req)
	if err != nil {
		httpError(w, "metrics", http.StatusBadRequest, err)
		return
	}
	resp, err := in.IngestMetrics(r.Context(), &req, "http")
	if err != nil {
		writeIngestError(w, "metrics", err)
		return
	}
	writeResponse(w, resp, isJSON)
}

// decodeBody unmarshals r's body into msg, returning true when the body
// was JSON (so the response can be encoded the same way).
func decodeBody(r *http.Request, msg proto.Message) (bool, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false, err
	}
	if r.Header.Get("Content-Type") == "application/json" {
		return true, protojson.Unmarshal(body, msg)
	}
	return false, proto.Unmarshal(body, msg)
}

func writeResponse(w http.ResponseWriter, msg proto.Message, asJSON bool) {
	var body []byte
	var err error
	if asJSON {
		w.Header().Set("Content-Type", "application/json")
		body, err = protojson.Marshal(msg)
	} else {
		w.Header().Set("Content-Type", "application/x-protobuf")
		body, err = proto.Marshal(msg)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeIngestError(w http.ResponseWriter, signal string, err error) {
	if errors.Is(err, pipeline.ErrFull) {
		httpError(w, signal, http.StatusServiceUnavailable, err)
		return
	}
	httpError(w, signal, http.StatusInternalServerError, err)
}

func httpError(w http.ResponseWriter, signal string, status int, err error) {
	requestsTotal.WithLabelValues(signal, "http", "error").Inc()
	http.Error(w, err.Error(), status)
}
