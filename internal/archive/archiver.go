// Package archive exports transaction records to object storage as JSONL.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sniper/internal/domain"
)

// ContentType of uploaded archives.
const ContentType = "application/x-ndjson"

// Writer stores one object. Satisfied by *S3Writer.
type Writer interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// TransactionSource reads records in a time window. Satisfied by storage.TransactionStore.
type TransactionSource interface {
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error)
}

// Result describes one export.
type Result struct {
	Key   string
	Count int
}

// Archiver exports transaction windows. Records stay in the primary store.
type Archiver struct {
	writer Writer
	source TransactionSource
	prefix string
	log    logrus.FieldLogger
}

// NewArchiver creates an Archiver writing under prefix.
func NewArchiver(writer Writer, source TransactionSource, prefix string, log logrus.FieldLogger) *Archiver {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Archiver{
		writer: writer,
		source: source,
		prefix: strings.Trim(prefix, "/"),
		log:    log.WithField("component", "archive"),
	}
}

// Export uploads the records with timestamps in [from, to] as one JSONL object.
// An empty window uploads nothing and returns a zero Count.
func (a *Archiver) Export(ctx context.Context, from, to time.Time) (Result, error) {
	if to.Before(from) {
		return Result{}, errors.New("archive: window end before start")
	}

	records, err := a.source.GetByTimeRange(ctx, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return Result{}, fmt.Errorf("archive: query transactions: %w", err)
	}

	key := ObjectKey(a.prefix, from, to)
	if len(records) == 0 {
		a.log.WithField("key", key).Info("no transactions in window")
		return Result{Key: key}, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return Result{}, fmt.Errorf("archive: marshal: %w", err)
	}
	if err := a.writer.Put(ctx, key, bytes.NewReader(buf), ContentType); err != nil {
		return Result{}, err
	}

	a.log.WithFields(logrus.Fields{
		"key":   key,
		"count": len(records),
		"bytes": len(buf),
	}).Info("transactions archived")
	return Result{Key: key, Count: len(records)}, nil
}

// ObjectKey partitions archives by the UTC day of the window start:
//
//	prefix/2026/03/14/transactions-<fromMs>-<toMs>.jsonl
func ObjectKey(prefix string, from, to time.Time) string {
	name := fmt.Sprintf("transactions-%d-%d.jsonl", from.UnixMilli(), to.UnixMilli())
	return path.Join(prefix, from.UTC().Format("2006/01/02"), name)
}

func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
