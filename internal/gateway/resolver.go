package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/options"
	"github.com/roach88/ffgraph/internal/store"
)

// ErrNoCatalogue is returned when an identifier names no catalogue files.
var ErrNoCatalogue = errors.New("no catalogue files")

// ErrUnknownDigest is returned when a digest identifier matches no catalogue
// resolved before.
var ErrUnknownDigest = errors.New("unknown catalogue digest")

// catalogueExt is the extension of catalogue source files.
const catalogueExt = ".cue"

// Result is a completed resolution.
type Result struct {
	Requested string
	Resolved  string
	Workspace string
	Options   []options.GlobalOption
	Cached    bool
}

// Resolver resolves resource identifiers to option catalogues.
//
// A digest identifier ("sha256:<hex>") resolves to the catalogue that produced
// it: the built-in one, one resolved earlier by this Resolver, or one recorded
// in the cache.
//
// Thread-safety: Resolver is safe for concurrent use. Workspace rewrites are
// serialized.
type Resolver struct {
	fs        afs.Service
	workspace string
	cache     *store.Store
	logger    *slog.Logger

	mu      sync.Mutex // guards digests and workspace rewrites
	digests map[string]Result
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache records resolutions in s and reuses them while their workspace
// still exists.
func WithCache(s *store.Store) ResolverOption {
	return func(r *Resolver) { r.cache = s }
}

// WithResolverLogger sets the structured logger. Defaults to slog.Default().
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver cloning catalogues below workspace.
// A nil service uses afs.New().
func NewResolver(fs afs.Service, workspace string, opts ...ResolverOption) *Resolver {
	if fs == nil {
		fs = afs.New()
	}
	r := &Resolver{
		fs:        fs,
		workspace: url.Normalize(workspace, file.Scheme),
		logger:    slog.Default(),
		digests:   make(map[string]Result),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves identifier, calling report for every stage reached.
// Stages are reported in order and each at most once.
func (r *Resolver) Resolve(ctx context.Context, identifier string, report func(bus.Progress)) (Result, error) {
	if identifier == options.BuiltinIdentifier {
		return r.resolveBuiltin(ctx, report)
	}
	if options.IsDigest(identifier) {
		return r.resolveDigest(ctx, identifier, report)
	}

	if res, ok := r.cached(ctx, identifier); ok {
		r.index(res)
		report(bus.Completed(res.Resolved))
		return res, nil
	}

	report(bus.Started())
	source := url.Normalize(identifier, file.Scheme)
	exists, err := r.fs.Exists(ctx, source)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", identifier, err)
	}
	if !exists {
		return Result{}, fmt.Errorf("resolve %q: catalogue %s not found", identifier, source)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	report(bus.Cloning())
	r.mu.Lock()
	defer r.mu.Unlock()
	workspace := r.workspaceFor(identifier)
	copied, err := r.clone(ctx, source, workspace)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: clone: %w", identifier, err)
	}
	r.logger.Debug("catalogue cloned", "identifier", identifier, "workspace", workspace, "files", copied)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	report(bus.Loading())
	opts, err := r.load(ctx, workspace)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: load: %w", identifier, err)
	}
	digest, err := options.Digest(opts)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", identifier, err)
	}

	res := Result{
		Requested: identifier,
		Resolved:  digest,
		Workspace: workspace,
		Options:   opts,
	}
	r.digests[digest] = res
	r.remember(ctx, res)

	report(bus.Completed(digest))
	return res, nil
}

func (r *Resolver) resolveBuiltin(ctx context.Context, report func(bus.Progress)) (Result, error) {
	report(bus.Started())
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	report(bus.Loading())
	opts, err := options.Builtin()
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", options.BuiltinIdentifier, err)
	}
	digest, err := options.Digest(opts)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", options.BuiltinIdentifier, err)
	}

	report(bus.Completed(digest))
	return Result{Requested: options.BuiltinIdentifier, Resolved: digest, Options: opts}, nil
}

// resolveDigest resolves a digest produced by an earlier resolution.
func (r *Resolver) resolveDigest(ctx context.Context, digest string, report func(bus.Progress)) (Result, error) {
	builtin, err := options.BuiltinDigest()
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", digest, err)
	}
	if digest == builtin {
		res, err := r.resolveBuiltin(ctx, report)
		res.Requested = digest
		return res, err
	}

	res, ok := r.known(ctx, digest)
	if !ok {
		return Result{}, fmt.Errorf("resolve %q: %w", digest, ErrUnknownDigest)
	}
	report(bus.Completed(res.Resolved))
	return res, nil
}

// known looks digest up among this resolver's results, then in the cache.
func (r *Resolver) known(ctx context.Context, digest string) (Result, bool) {
	r.mu.Lock()
	res, ok := r.digests[digest]
	r.mu.Unlock()
	if ok {
		res.Requested = digest
		res.Cached = true
		return res, true
	}

	if r.cache == nil {
		return Result{}, false
	}
	stored, ok, err := r.cache.GetResolutionByDigest(ctx, digest)
	if err != nil {
		r.logger.Warn("resolution cache read failed", "identifier", digest, "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	return Result{
		Requested: digest,
		Resolved:  stored.Resolved,
		Workspace: stored.Workspace,
		Options:   stored.Options,
		Cached:    true,
	}, true
}

func (r *Resolver) index(res Result) {
	r.mu.Lock()
	r.digests[res.Resolved] = res
	r.mu.Unlock()
}

// cached returns a stored resolution whose workspace still exists. A stored
// resolution whose workspace is gone is forgotten.
func (r *Resolver) cached(ctx context.Context, identifier string) (Result, bool) {
	if r.cache == nil {
		return Result{}, false
	}

	stored, ok, err := r.cache.GetResolution(ctx, identifier)
	if err != nil {
		r.logger.Warn("resolution cache read failed", "identifier", identifier, "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	if exists, _ := r.fs.Exists(ctx, stored.Workspace); !exists {
		r.logger.Debug("cached workspace missing", "identifier", identifier, "workspace", stored.Workspace)
		if err := r.cache.ForgetResolution(ctx, identifier); err != nil {
			r.logger.Warn("resolution cache write failed", "identifier", identifier, "error", err)
		}
		return Result{}, false
	}

	return Result{
		Requested: stored.Requested,
		Resolved:  stored.Resolved,
		Workspace: stored.Workspace,
		Options:   stored.Options,
		Cached:    true,
	}, true
}

func (r *Resolver) remember(ctx context.Context, res Result) {
	if r.cache == nil {
		return
	}
	err := r.cache.PutResolution(ctx, store.Resolution{
		Requested: res.Requested,
		Resolved:  res.Resolved,
		Workspace: res.Workspace,
		Options:   res.Options,
	})
	if err != nil {
		r.logger.Warn("resolution cache write failed", "identifier", res.Requested, "error", err)
	}
}

// workspaceFor names the clone directory of identifier.
func (r *Resolver) workspaceFor(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return url.Join(r.workspace, hex.EncodeToString(sum[:8]))
}

// clone replaces workspace with the top-level catalogue files of source.
// Callers hold r.mu.
func (r *Resolver) clone(ctx context.Context, source, workspace string) (int, error) {
	objects, err := r.fs.List(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", source, err)
	}

	if exists, _ := r.fs.Exists(ctx, workspace); exists {
		if err := r.fs.Delete(ctx, workspace); err != nil {
			return 0, fmt.Errorf("clear workspace: %w", err)
		}
	}
	if err := r.fs.Create(ctx, workspace, file.DefaultDirOsMode, true); err != nil {
		return 0, fmt.Errorf("create workspace: %w", err)
	}

	copied := 0
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), catalogueExt) {
			continue
		}
		data, err := r.fs.Download(ctx, object)
		if err != nil {
			return copied, fmt.Errorf("download %s: %w", object.URL(), err)
		}
		dest := url.Join(workspace, object.Name())
		if err := r.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return copied, fmt.Errorf("upload %s: %w", dest, err)
		}
		copied++
	}

	if copied == 0 {
		return 0, ErrNoCatalogue
	}
	return copied, nil
}

// load compiles every catalogue file in workspace.
func (r *Resolver) load(ctx context.Context, workspace string) ([]options.GlobalOption, error) {
	objects, err := r.fs.List(ctx, workspace)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", workspace, err)
	}

	sources := make(map[string][]byte)
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), catalogueExt) {
			continue
		}
		data, err := r.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", object.URL(), err)
		}
		sources[object.Name()] = data
	}
	if len(sources) == 0 {
		return nil, ErrNoCatalogue
	}

	return options.CompileSources(sources)
}
