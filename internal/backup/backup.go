package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tutrabajo/apiserver/internal/storage"
	"github.com/tutrabajo/apiserver/internal/store"
)

const (
	snapshotPrefix = "cvs-"
	snapshotSuffix = ".jsonl.gz"
	snapshotLayout = "20060102T150405Z"
	contentType    = "application/gzip"
	pageSize       = 500
	maxLineBytes   = 32 << 20
)

// RecordStore is the subset of the record store a backup needs.
type RecordStore interface {
	Insert(ctx context.Context, table string, rec store.Record) (int64, error)
	FetchAll(ctx context.Context, query string, args ...any) ([]store.Record, error)
}

// Row is one CV as written to a snapshot. Content is the stored ciphertext;
// snapshots never hold plaintext.
type Row struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Result summarises a snapshot or restore run.
type Result struct {
	Key      string
	Rows     int
	Skipped  int
	Duration time.Duration
}

// CVBackup writes and restores snapshots of the cvs table.
type CVBackup struct {
	store   RecordStore
	objects storage.ObjectStorage
	prefix  string
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewCVBackup(store RecordStore, objects storage.ObjectStorage, prefix string, log logrus.FieldLogger) *CVBackup {
	return &CVBackup{
		store:   store,
		objects: objects,
		prefix:  strings.Trim(prefix, "/"),
		log:     log,
		now:     time.Now,
	}
}

// Snapshot streams every CV row into a gzip JSON-lines object and uploads it.
func (b *CVBackup) Snapshot(ctx context.Context) (Result, error) {
	start := b.now()
	key := path.Join(b.prefix, snapshotPrefix+start.UTC().Format(snapshotLayout)+snapshotSuffix)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)

	const query = `
		SELECT id, user_id, filename, content, uploaded_at
		FROM cvs
		ORDER BY id
		LIMIT ? OFFSET ?`

	rows := 0
	for offset := 0; ; offset += pageSize {
		records, err := b.store.FetchAll(ctx, query, pageSize, offset)
		if err != nil {
			return Result{}, fmt.Errorf("read cvs: %w", err)
		}
		for _, rec := range records {
			row, err := rowFromRecord(rec)
			if err != nil {
				return Result{}, err
			}
			if err := enc.Encode(row); err != nil {
				return Result{}, fmt.Errorf("encode row %s: %w", row.ID, err)
			}
			rows++
		}
		if len(records) < pageSize {
			break
		}
	}
	if err := gz.Close(); err != nil {
		return Result{}, fmt.Errorf("compress snapshot: %w", err)
	}

	if err := b.objects.Put(ctx, key, &buf, int64(buf.Len()), contentType); err != nil {
		return Result{}, fmt.Errorf("upload snapshot %s: %w", key, err)
	}

	res := Result{Key: key, Rows: rows, Duration: b.now().Sub(start)}
	b.log.WithFields(logrus.Fields{
		"key":    key,
		"bucket": b.objects.Bucket(),
		"rows":   rows,
	}).Info("cv snapshot uploaded")
	return res, nil
}

// Restore inserts the rows of a snapshot. Rows whose id already exists or
// whose owner no longer exists are skipped.
func (b *CVBackup) Restore(ctx context.Context, key string) (Result, error) {
	start := b.now()

	obj, err := b.objects.Get(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("download snapshot %s: %w", key, err)
	}
	defer obj.Close()

	gz, err := gzip.NewReader(obj)
	if err != nil {
		return Result{}, fmt.Errorf("open snapshot %s: %w", key, err)
	}
	defer gz.Close()

	res := Result{Key: key}
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		var row Row
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return res, fmt.Errorf("decode snapshot line %d: %w", res.Rows+res.Skipped+1, err)
		}

		rec := store.NewRecord(5).
			With("id", row.ID).
			With("user_id", row.UserID).
			With("filename", row.Filename).
			With("content", row.Content).
			With("uploaded_at", row.UploadedAt.UTC())
		if _, err := b.store.Insert(ctx, "cvs", rec); err != nil {
			if store.IsUniqueViolation(err) || store.IsForeignKeyViolation(err) {
				res.Skipped++
				b.log.WithError(err).WithField("cv_id", row.ID).Debug("skipping cv")
				continue
			}
			return res, fmt.Errorf("restore cv %s: %w", row.ID, err)
		}
		res.Rows++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	res.Duration = b.now().Sub(start)
	b.log.WithFields(logrus.Fields{
		"key":     key,
		"rows":    res.Rows,
		"skipped": res.Skipped,
	}).Info("cv snapshot restored")
	return res, nil
}

// List returns snapshot keys, newest first.
func (b *CVBackup) List(ctx context.Context) ([]string, error) {
	keys, err := b.objects.List(ctx, path.Join(b.prefix, snapshotPrefix))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snapshots := keys[:0]
	for _, key := range keys {
		if strings.HasSuffix(key, snapshotSuffix) {
			snapshots = append(snapshots, key)
		}
	}
	// Timestamps in the key sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(snapshots)))
	return snapshots, nil
}

// Prune deletes all but the newest keep snapshots and returns the deleted keys.
func (b *CVBackup) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		return nil, errors.New("keep must be at least 1")
	}

	snapshots, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) <= keep {
		return nil, nil
	}

	var deleted []string
	for _, key := range snapshots[keep:] {
		if err := b.objects.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("delete snapshot %s: %w", key, err)
		}
		deleted = append(deleted, key)
	}
	b.log.WithField("deleted", len(deleted)).Info("pruned cv snapshots")
	return deleted, nil
}

func rowFromRecord(rec store.Record) (Row, error) {
	get := func(name string) any {
		v, _ := rec.Get(name)
		return v
	}
	text := func(name string) string {
		switch v := get(name).(type) {
		case string:
			return v
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}

	row := Row{
		ID:       text("id"),
		UserID:   text("user_id"),
		Filename: text("filename"),
		Content:  text("content"),
	}
	uploadedAt, err := store.ParseTime(get("uploaded_at"))
	if err != nil {
		return Row{}, fmt.Errorf("decode uploaded_at of cv %s: %w", row.ID, err)
	}
	row.UploadedAt = uploadedAt
	return row, nil
}
