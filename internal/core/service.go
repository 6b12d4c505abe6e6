package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/king-kite/nexthrms-v2-sub002/internal/logging"
	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

var (
	// ErrUnknownKind is returned for an import kind that is not registered.
	ErrUnknownKind = errors.New("unknown import kind")

	// ErrArchiveOnly is returned when an archive-only kind is imported on its own.
	ErrArchiveOnly = errors.New("kind can only be imported inside an archive")
)

const (
	DefaultDataMember        = "employees.csv"
	DefaultPermissionsMember = "permissions.csv"
	DefaultImportTimeout     = 10 * time.Minute
	DefaultHistoryLimit      = 50
	MaxHistoryLimit          = 500

	// failureLogTimeout bounds the best-effort write of a failed import's
	// log entry, which runs after the import context may already be done.
	failureLogTimeout = 5 * time.Second
)

// Options configures a Service. Zero fields select the defaults.
type Options struct {
	DataMember        string
	PermissionsMember string
	Encoding          string
	MaxFileSize       int64
	MaxMemberSize     int64
	Timeout           time.Duration
	MaxConcurrent     int
	MaxWait           time.Duration
}

func (o Options) withDefaults() Options {
	if o.DataMember == "" {
		o.DataMember = DefaultDataMember
	}
	if o.PermissionsMember == "" {
		o.PermissionsMember = DefaultPermissionsMember
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.MaxMemberSize <= 0 {
		o.MaxMemberSize = tabular.DefaultMaxMemberSize
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultImportTimeout
	}
	return o
}

// Service provides the business logic for HR imports.
type Service struct {
	store   Store
	opts    Options
	limiter *ImportLimiter
}

// NewService creates a Service. store may be nil, in which case only dry
// runs and kind listing work.
func NewService(store Store, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:   store,
		opts:    opts,
		limiter: NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
	}
}

// Limiter exposes the import limiter for status reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// ListKinds returns information about all registered import kinds.
func (s *Service) ListKinds() []ImportInfo {
	defs := All()
	infos := make([]ImportInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Ping checks the store connection.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	return s.store.Ping(ctx)
}

// History returns the most recent imports, newest first. limit is clamped to
// [1, MaxHistoryLimit]; zero selects DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, limit int) ([]ImportLog, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	logs, err := s.store.ListImports(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return logs, nil
}

// ImportTable parses, validates and stores one file of the given kind in a
// single transaction.
func (s *Service) ImportTable(ctx context.Context, kind, fileName string, data []byte) (*ImportResult, error) {
	return s.importTable(ctx, kind, fileName, data, false)
}

// CheckTable runs ImportTable without storing anything.
func (s *Service) CheckTable(ctx context.Context, kind, fileName string, data []byte) (*ImportResult, error) {
	return s.importTable(ctx, kind, fileName, data, true)
}

// ImportArchive imports an archive holding an employees file and an object
// permissions file. Employees are stored first; the permission rows are then
// resolved against the generated employee IDs and stored in the same
// transaction. Nothing is committed unless both phases succeed.
func (s *Service) ImportArchive(ctx context.Context, fileName string, data []byte) (*ArchiveImportResult, error) {
	return s.importArchive(ctx, fileName, data, false)
}

// CheckArchive runs ImportArchive without storing anything.
func (s *Service) CheckArchive(ctx context.Context, fileName string, data []byte) (*ArchiveImportResult, error) {
	return s.importArchive(ctx, fileName, data, true)
}

func (s *Service) importTable(ctx context.Context, kind, fileName string, data []byte, dryRun bool) (*ImportResult, error) {
	def, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if def.Info.ArchiveOnly || def.Persist == nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveOnly, kind)
	}

	ctx, done, err := s.start(ctx, dryRun)
	if err != nil {
		return nil, err
	}
	defer done()

	logger := importLogger(ctx, kind, fileName, dryRun)
	logger.Info("import started", "bytes", len(data))

	importID := NewPgUUID()
	entry := ImportLog{
		ID:        uuid.UUID(importID.Bytes),
		Kind:      kind,
		FileName:  fileName,
		StartedAt: time.Now().UTC(),
	}

	rows, err := s.runTable(ctx, def, importID, entry, data, dryRun)
	if err != nil {
		s.fail(ctx, logger, entry, dryRun, err)
		return nil, err
	}

	elapsed := time.Since(entry.StartedAt)
	logger.Info("import completed", "rows", rows, "duration_ms", elapsed.Milliseconds())

	res := &ImportResult{Kind: kind, FileName: fileName, Rows: rows, DryRun: dryRun, Duration: elapsed}
	if !dryRun {
		res.ImportID = PgUUIDToString(importID)
	}
	return res, nil
}

func (s *Service) runTable(ctx context.Context, def ImportDefinition, importID pgtype.UUID, entry ImportLog, data []byte, dryRun bool) (int, error) {
	content, err := NormalizeInput(data, s.inputOptions(s.opts.MaxFileSize))
	if err != nil {
		return 0, err
	}

	records, err := tabular.ParseTable(content, def.Schema, tabular.Options{})
	if err != nil {
		return 0, err
	}

	items, err := BuildAll(def, records)
	if err != nil {
		return 0, err
	}

	tx, err := s.begin(ctx, dryRun)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := def.Persist(ctx, tx, importID, items); err != nil {
		return 0, fmt.Errorf("store %s: %w", def.Info.Key, err)
	}

	entry.Status = StatusCommitted
	entry.Rows = len(items)
	entry.DurationMillis = time.Since(entry.StartedAt).Milliseconds()
	if err := tx.InsertImportLog(ctx, entry); err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(items), nil
}

func (s *Service) importArchive(ctx context.Context, fileName string, data []byte, dryRun bool) (*ArchiveImportResult, error) {
	empDef, ok := Get(KindEmployees)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, KindEmployees)
	}
	permDef, ok := Get(KindObjectPermissions)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, KindObjectPermissions)
	}
	if int64(len(data)) > s.opts.MaxFileSize {
		return nil, SizeError(int64(len(data)), s.opts.MaxFileSize)
	}

	ctx, done, err := s.start(ctx, dryRun)
	if err != nil {
		return nil, err
	}
	defer done()

	logger := importLogger(ctx, "archive", fileName, dryRun)
	logger.Info("archive import started", "bytes", len(data))

	importID := NewPgUUID()
	entry := ImportLog{
		ID:        uuid.UUID(importID.Bytes),
		Kind:      "archive",
		FileName:  fileName,
		StartedAt: time.Now().UTC(),
	}

	res, err := s.runArchive(ctx, logger, empDef, permDef, importID, entry, data, dryRun)
	if err != nil {
		s.fail(ctx, logger, entry, dryRun, err)
		return nil, err
	}

	elapsed := time.Since(entry.StartedAt)
	logger.Info("archive import completed",
		"employees", len(res.Data),
		"permissions", len(res.Permissions),
		"duration_ms", elapsed.Milliseconds(),
	)

	out := &ArchiveImportResult{
		FileName:    fileName,
		Employees:   len(res.Data),
		Permissions: len(res.Permissions),
		DryRun:      dryRun,
		Duration:    elapsed,
	}
	if !dryRun {
		out.ImportID = PgUUIDToString(importID)
	}
	return out, nil
}

// runArchive parses both members inside one transaction. The transaction is
// closed before it returns so a failure can be recorded in a new one.
func (s *Service) runArchive(ctx context.Context, logger *slog.Logger, empDef, permDef ImportDefinition, importID pgtype.UUID, entry ImportLog, data []byte, dryRun bool) (*tabular.ArchiveResult, error) {
	tx, err := s.begin(ctx, dryRun)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make(map[string]pgtype.UUID)
	spec := tabular.ArchiveSpec{
		DataMember:        s.opts.DataMember,
		PermissionsMember: s.opts.PermissionsMember,
		DataSchema:        empDef.Schema,
		PermissionsSchema: permDef.Schema,
		MaxMemberSize:     s.opts.MaxMemberSize,
		Decode:            decoderFor(s.inputOptions(s.opts.MaxMemberSize)),

		OnDataParsed: func(ctx context.Context, records []tabular.Record) error {
			items, err := BuildAll(empDef, records)
			if err != nil {
				return err
			}
			emps, err := EmployeesFromItems(items, importID)
			if err != nil {
				return err
			}
			stored, err := tx.InsertEmployees(ctx, emps)
			if err != nil {
				return fmt.Errorf("store employees: %w", err)
			}
			for _, e := range stored {
				ids[e.EmployeeNumber] = e.ID
			}
			logger.Debug("employees stored", "rows", len(stored))
			return nil
		},

		OnPermissionsParsed: func(ctx context.Context, records []tabular.Record) error {
			items, err := BuildAll(permDef, records)
			if err != nil {
				return err
			}
			perms, err := ResolvePermissions(items, ids, importID)
			if err != nil {
				return err
			}
			if err := tx.InsertPermissions(ctx, perms); err != nil {
				return fmt.Errorf("store permissions: %w", err)
			}
			return nil
		},
	}

	res, err := tabular.ParseArchive(ctx, data, spec)
	if err != nil {
		return nil, err
	}

	entry.Status = StatusCommitted
	entry.Rows = len(res.Data)
	entry.PermissionRows = len(res.Permissions)
	entry.DurationMillis = time.Since(entry.StartedAt).Milliseconds()
	if err := tx.InsertImportLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// importLogger returns the request logger with the import's fields and the
// requester, when one is attached.
func importLogger(ctx context.Context, kind, fileName string, dryRun bool) *slog.Logger {
	fields := []any{"kind", kind, "file", fileName, "dry_run", dryRun}
	if r, ok := RequesterFromContext(ctx); ok {
		fields = append(fields, r.logFields()...)
	}
	return logging.WithFields(ctx, fields...)
}

// start takes a limiter slot and applies the import timeout. The returned
// func releases both.
func (s *Service) start(ctx context.Context, dryRun bool) (context.Context, func(), error) {
	if !dryRun && s.store == nil {
		return nil, nil, ErrStoreUnavailable
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	return ctx, func() {
		cancel()
		s.limiter.Release()
	}, nil
}

func (s *Service) begin(ctx context.Context, dryRun bool) (StoreTx, error) {
	if dryRun {
		return dryRunTx{}, nil
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) inputOptions(maxSize int64) InputOptions {
	return InputOptions{MaxSize: maxSize, Encoding: s.opts.Encoding}
}

// fail logs a failed import and, outside dry runs, records it in the import
// history using a fresh transaction. Recording is best effort.
func (s *Service) fail(ctx context.Context, logger *slog.Logger, entry ImportLog, dryRun bool, cause error) {
	msg := MapError(cause)
	logger.Warn("import failed", "error", cause, "code", msg.Code)

	if dryRun || s.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureLogTimeout)
	defer cancel()

	entry.Status = StatusFailed
	entry.Error = cause.Error()
	entry.DurationMillis = time.Since(entry.StartedAt).Milliseconds()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		logger.Error("record failed import", "error", err)
		return
	}
	defer tx.Rollback(ctx)

	if err := tx.InsertImportLog(ctx, entry); err != nil {
		logger.Error("record failed import", "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error("record failed import", "error", err)
	}
}
