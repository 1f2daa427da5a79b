package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/fleetkit/tokenreg/internal/core/domain"
	"github.com/fleetkit/tokenreg/internal/core/hash"
	"github.com/fleetkit/tokenreg/internal/kv"
	"github.com/fleetkit/tokenreg/pkg/nodeid"
)

// Clock returns the current time as epoch milliseconds. Abstracted so
// tests can supply a deterministic clock.
type Clock func() int64

// RealClock is the production Clock, grounded on time.Now().
func RealClock() int64 {
	return time.Now().UnixMilli()
}

// ServiceDescriptionValidator raises an error if params fails
// domain-specific semantic validation beyond syntactic shape (§6
// "validate-service-description(params) — raises on invalid"). A nil
// validator accepts everything.
type ServiceDescriptionValidator func(params domain.ServiceParameters) error

// RegistryConfig holds the per-deployment tunables the mutation pipeline
// consults.
type RegistryConfig struct {
	// Quota caps the number of live tokens a single owner may hold.
	// Quota <= 0 disables enforcement (§9 Non-goals: "Cross-owner global
	// quota" is explicitly out of scope; per-owner quota is not).
	Quota int

	// GlobalRoot is the root assigned to a brand-new token when no
	// existing record supplies one (§4.5 step 1 default "root =
	// existing.root ?? global-root").
	GlobalRoot string
}

// Registry is the mutation pipeline and its supporting read paths (§2
// "Mutation pipeline", grounded on the orchestration shape of the
// teacher's SessionService: validate, authorize, assemble, persist,
// notify).
type Registry struct {
	kv       kv.Store
	locks    *LockManager
	authz    Authorizer
	cluster  ClusterCalculator
	peers    PeerBroadcaster
	validate ServiceDescriptionValidator
	clock    Clock
	cfg      RegistryConfig
	logger   *slog.Logger
}

// NewRegistry wires a Registry from its collaborators. peers and validate
// may be nil (broadcast/validation become no-ops); clock defaults to
// RealClock.
func NewRegistry(store kv.Store, locks *LockManager, authz Authorizer, cluster ClusterCalculator, peers PeerBroadcaster, validate ServiceDescriptionValidator, clock Clock, cfg RegistryConfig, logger *slog.Logger) *Registry {
	if clock == nil {
		clock = RealClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		kv:       store,
		locks:    locks,
		authz:    authz,
		cluster:  cluster,
		peers:    peers,
		validate: validate,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// ============================================================================
// Create / update
// ============================================================================

// CreateOrUpdateInput carries everything the pipeline needs to assemble
// and persist a token (§4.5).
type CreateOrUpdateInput struct {
	Token     string
	Body      map[string]any
	IfMatch   string
	AdminMode bool
	User      string
	Request   *http.Request // consumed only by the cluster calculator
}

// CreateOrUpdateResult is returned on success.
type CreateOrUpdateResult struct {
	Record   *domain.TokenRecord
	ETag     string
	NoChange bool
	Message  string
}

// forbiddenNormalModeKeys are metadata fields a normal-mode request may
// never set directly (§4.5 precondition).
var forbiddenNormalModeKeys = []string{
	domain.KeyLastUpdateTime,
	domain.KeyLastUpdateUser,
	domain.KeyRoot,
	"previous",
}

func isKnownBodyKey(key string) bool {
	if domain.IsRecognizedParameterKey(key) {
		return true
	}
	switch key {
	case domain.KeyOwner, domain.KeyRoot, domain.KeyLastUpdateTime, domain.KeyLastUpdateUser, "previous", "token":
		return true
	}
	return false
}

// CreateOrUpdate runs the full mutation pipeline (§4.5).
func (r *Registry) CreateOrUpdate(ctx context.Context, in CreateOrUpdateInput) (*CreateOrUpdateResult, error) {
	if in.Token == "" {
		return nil, domain.ErrBlankTokenName
	}
	if domain.IsReservedTokenName(in.Token) {
		return nil, domain.ErrReservedTokenName
	}
	if !domain.ValidTokenName(in.Token) {
		return nil, domain.ErrInvalidTokenName
	}
	if len(in.Body) == 0 {
		return nil, domain.ErrEmptyBody
	}
	if bodyToken, ok := in.Body["token"].(string); ok && bodyToken != "" && bodyToken != in.Token {
		return nil, domain.ErrTokenOwnerConflict
	}
	for key := range in.Body {
		if !isKnownBodyKey(key) {
			return nil, domain.ErrUnknownKey.WithDetails(key)
		}
	}
	if !in.AdminMode {
		for _, key := range forbiddenNormalModeKeys {
			if _, present := in.Body[key]; present {
				return nil, domain.ErrForbiddenMetadata.WithDetails(key)
			}
		}
	}
	if raw, present := in.Body["previous"]; present {
		if _, ok := raw.(map[string]any); !ok {
			return nil, domain.ErrInvalidPrevious
		}
	}

	params, err := decodeServiceParameters(in.Body)
	if err != nil {
		return nil, err
	}
	if params.Authentication == domain.AuthDisabled {
		if params.PermittedUser != domain.WildcardUser || !params.RequiredParametersPresent() {
			return nil, domain.ErrInvalidAuth
		}
	}
	if params.InterstitialSecs != 0 && !params.RequiredParametersPresent() {
		return nil, domain.ErrInvalidInterstitial
	}
	if r.validate != nil {
		if err := r.validate(params); err != nil {
			return nil, domain.ErrServiceDescription.WithCause(err)
		}
	}

	var bodyLastUpdateTime int64
	var bodyLastUpdateTimeSet bool
	if raw, present := in.Body[domain.KeyLastUpdateTime]; present {
		t, err := parseLastUpdateTime(raw)
		if err != nil {
			return nil, domain.ErrBadDateFormat.WithCause(err)
		}
		bodyLastUpdateTime, bodyLastUpdateTimeSet = t, true
	}

	var result *CreateOrUpdateResult
	err = r.locks.WithLock(TokenLockName, func() error {
		existing, _, err := r.fetchRecord(ctx, in.Token, true)
		if err != nil {
			return err
		}

		owner := firstNonEmpty(bodyString(in.Body, domain.KeyOwner), ownerOf(existing))
		if owner == "" {
			owner = in.User
		}
		if owner == "" {
			return domain.ErrInternal.WithDetails("owner must not be blank")
		}
		root := ownerOrDefault(existing, r.cfg.GlobalRoot)
		cluster := r.calculateCluster(in.Request)
		lastUpdateUser := in.User
		lastUpdateTime := r.clock()

		if in.AdminMode {
			if v := bodyString(in.Body, domain.KeyRoot); v != "" {
				root = v
			}
			if v := bodyString(in.Body, domain.KeyLastUpdateUser); v != "" {
				lastUpdateUser = v
			}
			if bodyLastUpdateTimeSet {
				lastUpdateTime = bodyLastUpdateTime
			}
		}

		newMetadata := domain.TokenMetadata{
			Owner:          owner,
			Root:           root,
			Cluster:        cluster,
			LastUpdateTime: lastUpdateTime,
			LastUpdateUser: lastUpdateUser,
		}

		if err := r.authorizeCreateOrUpdate(ctx, in, existing, params, newMetadata); err != nil {
			return err
		}

		if err := r.checkPrecondition(in.IfMatch, existing); err != nil {
			return err
		}

		if !in.AdminMode && existing != nil && editableProjectionsEqual(params, newMetadata, existing.Params, existing.Metadata) {
			result = &CreateOrUpdateResult{
				Record:   existing,
				ETag:     hash.HashRecord(existing),
				NoChange: true,
				Message:  fmt.Sprintf("No changes detected for %s", in.Token),
			}
			return nil
		}

		if !in.AdminMode && r.cfg.Quota > 0 {
			if err := r.checkQuota(ctx, in.Token, owner); err != nil {
				return err
			}
		}

		newRecord := &domain.TokenRecord{
			Name:     in.Token,
			Params:   params,
			Metadata: newMetadata,
		}
		newRecord.Metadata.Previous = domain.TruncateHistory(existing, domain.MaxHistoryDepth-1)

		if err := r.storeRecord(ctx, newRecord); err != nil {
			return err
		}

		newHash := hash.HashRecord(newRecord)
		previousOwner := ownerOf(existing)
		if err := r.updateIndexOnWrite(ctx, in.Token, previousOwner, owner, newHash, false, newMetadata.LastUpdateTime); err != nil {
			return err
		}

		result = &CreateOrUpdateResult{Record: newRecord, ETag: newHash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.NoChange {
		r.broadcastRefresh(ctx, RefreshMessage{Token: in.Token, Owner: result.Record.Metadata.Owner})
	}
	return result, nil
}

func (r *Registry) authorizeCreateOrUpdate(ctx context.Context, in CreateOrUpdateInput, existing *domain.TokenRecord, params domain.ServiceParameters, proposed domain.TokenMetadata) error {
	if in.AdminMode {
		if !r.authz.CanAdministerToken(ctx, in.User, in.Token, proposed) {
			return domain.ErrAdministerDenied
		}
		if existing != nil && in.IfMatch == "" {
			return domain.ErrMissingIfMatch
		}
		return nil
	}

	if hint := runAsUserHint(params); hint != "" && hint != domain.WildcardUser {
		if !r.authz.CanRunAs(ctx, in.User, hint) {
			return domain.ErrRunAsDenied
		}
	}
	existingOwner := ownerOf(existing)
	if existingOwner != "" && existingOwner != proposed.Owner {
		if !r.authz.CanManageToken(ctx, in.User, in.Token, existing.Metadata) {
			return domain.ErrManageDenied
		}
		return nil
	}
	if existingOwner == "" {
		if !r.authz.CanRunAs(ctx, in.User, proposed.Owner) {
			return domain.ErrRunAsDenied
		}
	}
	return nil
}

func (r *Registry) checkQuota(ctx context.Context, token, owner string) error {
	directory, err := r.loadDirectory(ctx, false)
	if err != nil {
		return err
	}
	shardKey, ok := directory[owner]
	if !ok {
		return nil
	}
	shard, err := r.loadShard(ctx, shardKey, false)
	if err != nil {
		return err
	}
	live := 0
	for name, entry := range shard {
		if name == token {
			continue
		}
		if !entry.Deleted {
			live++
		}
	}
	if live >= r.cfg.Quota {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// ============================================================================
// Delete
// ============================================================================

// DeleteInput carries the parameters for §4.6.
type DeleteInput struct {
	Token      string
	User       string
	IfMatch    string
	HardDelete bool
}

// Delete runs the delete pipeline (§4.6).
func (r *Registry) Delete(ctx context.Context, in DeleteInput) error {
	if in.Token == "" {
		return domain.ErrBlankTokenName
	}

	var owner string
	err := r.locks.WithLock(TokenLockName, func() error {
		existing, existed, err := r.fetchRecord(ctx, in.Token, true)
		if err != nil {
			return err
		}
		if !existed {
			return domain.ErrTokenNotFound
		}

		if err := r.checkPrecondition(in.IfMatch, existing); err != nil {
			return err
		}

		if in.HardDelete {
			if !r.authz.CanAdministerToken(ctx, in.User, in.Token, existing.Metadata) {
				return domain.ErrAdministerDenied
			}
			if !existing.Metadata.Deleted && in.IfMatch == "" {
				return domain.ErrMissingIfMatch
			}
		} else {
			if !r.authz.CanManageToken(ctx, in.User, in.Token, existing.Metadata) {
				return domain.ErrManageDenied
			}
		}

		owner = existing.Metadata.Owner

		if in.HardDelete {
			if err := r.kv.Delete(ctx, in.Token); err != nil {
				return err
			}
			if owner != "" {
				if err := r.removeFromShard(ctx, owner, in.Token); err != nil {
					return err
				}
			}
			return nil
		}

		tombstone := &domain.TokenRecord{
			Name:   in.Token,
			Params: existing.Params,
			Metadata: domain.TokenMetadata{
				Owner:          owner,
				Root:           existing.Metadata.Root,
				Cluster:        existing.Metadata.Cluster,
				LastUpdateTime: r.clock(),
				LastUpdateUser: in.User,
				Deleted:        true,
				Previous:       domain.TruncateHistory(existing, domain.MaxHistoryDepth-1),
			},
		}
		if err := r.storeRecord(ctx, tombstone); err != nil {
			return err
		}
		if owner != "" {
			newHash := hash.HashRecord(tombstone)
			if err := r.updateIndexOnWrite(ctx, in.Token, owner, owner, newHash, true, tombstone.Metadata.LastUpdateTime); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.broadcastRefresh(ctx, RefreshMessage{Token: in.Token, Owner: owner})
	return nil
}

// ============================================================================
// Reads
// ============================================================================

// Get returns a token's current record and ETag. found is false if the
// token has no record.
func (r *Registry) Get(ctx context.Context, token string) (record *domain.TokenRecord, etag string, found bool, err error) {
	record, found, err = r.fetchRecord(ctx, token, false)
	if err != nil || !found {
		return nil, "", found, err
	}
	return record, hash.HashRecord(record), true, nil
}

// ============================================================================
// Peer refresh (recipient side)
// ============================================================================

// ApplyRefresh handles an incoming tokens/refresh broadcast (§4.8):
// it forces a refresh=true re-read of whatever KV state the message
// names, so a stale local cache picks up a sibling's write.
func (r *Registry) ApplyRefresh(ctx context.Context, msg RefreshMessage) error {
	if msg.Index {
		dir, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}
		for _, shardKey := range dir {
			if _, err := r.loadShard(ctx, shardKey, true); err != nil {
				return err
			}
		}
		return nil
	}
	if msg.Token != "" {
		if _, _, err := r.fetchRecord(ctx, msg.Token, true); err != nil {
			return err
		}
	}
	if msg.Owner != "" {
		dir, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}
		if shardKey, ok := dir[msg.Owner]; ok {
			if _, err := r.loadShard(ctx, shardKey, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================================
// Shared helpers
// ============================================================================

func (r *Registry) checkPrecondition(ifMatch string, existing *domain.TokenRecord) error {
	if ifMatch == "" {
		return nil
	}
	if !hash.Verify(ifMatch, hash.HashRecord(existing)) {
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *Registry) calculateCluster(req *http.Request) string {
	if r.cluster == nil {
		return ""
	}
	if req == nil {
		return r.cluster.Default()
	}
	return r.cluster.Calculate(req)
}

func (r *Registry) broadcastRefresh(ctx context.Context, msg RefreshMessage) {
	if r.peers == nil {
		return
	}
	r.peers.Broadcast(ctx, msg)
}

// fetchRecord loads a token record by name. found=false with a nil error
// means the token simply does not exist.
func (r *Registry) fetchRecord(ctx context.Context, token string, refresh bool) (*domain.TokenRecord, bool, error) {
	raw, ok, err := r.kv.Fetch(ctx, token, refresh)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var record domain.TokenRecord
	if err := decodeInto(raw, &record); err != nil {
		return nil, false, domain.ErrInternal.WithCause(err)
	}
	record.Name = token
	return &record, true, nil
}

func (r *Registry) storeRecord(ctx context.Context, record *domain.TokenRecord) error {
	raw, err := encodeFrom(record)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	return r.kv.Store(ctx, record.Name, raw)
}

func (r *Registry) loadDirectory(ctx context.Context, refresh bool) (domain.Directory, error) {
	raw, ok, err := r.kv.Fetch(ctx, domain.DirectoryKey, refresh)
	if err != nil {
		return nil, err
	}
	if !ok {
		return domain.Directory{}, nil
	}
	var dir domain.Directory
	if err := decodeInto(raw, &dir); err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	if dir == nil {
		dir = domain.Directory{}
	}
	return dir, nil
}

func (r *Registry) storeDirectory(ctx context.Context, dir domain.Directory) error {
	raw, err := encodeFrom(dir)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	return r.kv.Store(ctx, domain.DirectoryKey, raw)
}

func (r *Registry) loadShard(ctx context.Context, shardKey string, refresh bool) (domain.Shard, error) {
	raw, ok, err := r.kv.Fetch(ctx, shardKey, refresh)
	if err != nil {
		return nil, err
	}
	if !ok {
		return domain.Shard{}, nil
	}
	var shard domain.Shard
	if err := decodeInto(raw, &shard); err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	if shard == nil {
		shard = domain.Shard{}
	}
	return shard, nil
}

func (r *Registry) storeShard(ctx context.Context, shardKey string, shard domain.Shard) error {
	raw, err := encodeFrom(shard)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	return r.kv.Store(ctx, shardKey, raw)
}

// ensureOwnerKey returns owner's shard key, minting and persisting one if
// absent (§4.4). Must run inside the lock.
func (r *Registry) ensureOwnerKey(ctx context.Context, dir domain.Directory, owner string) (string, domain.Directory, error) {
	if owner == "" {
		return "", dir, domain.ErrInternal.WithDetails("owner must not be blank")
	}
	if key, ok := dir[owner]; ok {
		return key, dir, nil
	}
	key := nodeid.NewShardKey(domain.ShardKeyPrefix)
	updated := make(domain.Directory, len(dir)+1)
	for k, v := range dir {
		updated[k] = v
	}
	updated[owner] = key
	if err := r.storeDirectory(ctx, updated); err != nil {
		return "", dir, err
	}
	return key, updated, nil
}

// updateIndexOnWrite applies the write-ordering discipline of §4.5/§4.6:
// token record is assumed already written by the caller; this inserts the
// new shard entry, then (if the owner changed) removes the stale entry
// from the old shard last.
func (r *Registry) updateIndexOnWrite(ctx context.Context, token, previousOwner, newOwner, newHash string, deleted bool, lastUpdateTime int64) error {
	dir, err := r.loadDirectory(ctx, false)
	if err != nil {
		return err
	}
	newKey, dir, err := r.ensureOwnerKey(ctx, dir, newOwner)
	if err != nil {
		return err
	}
	newShard, err := r.loadShard(ctx, newKey, false)
	if err != nil {
		return err
	}
	newShard[token] = domain.MakeIndexEntry(newHash, deleted, lastUpdateTime)
	if err := r.storeShard(ctx, newKey, newShard); err != nil {
		return err
	}

	if previousOwner != "" && previousOwner != newOwner {
		if err := r.removeFromShardUsing(ctx, dir, previousOwner, token); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) removeFromShard(ctx context.Context, owner, token string) error {
	dir, err := r.loadDirectory(ctx, false)
	if err != nil {
		return err
	}
	return r.removeFromShardUsing(ctx, dir, owner, token)
}

func (r *Registry) removeFromShardUsing(ctx context.Context, dir domain.Directory, owner, token string) error {
	shardKey, ok := dir[owner]
	if !ok {
		return nil
	}
	shard, err := r.loadShard(ctx, shardKey, false)
	if err != nil {
		return err
	}
	if _, present := shard[token]; !present {
		return nil
	}
	delete(shard, token)
	return r.storeShard(ctx, shardKey, shard)
}

// ============================================================================
// Small pure helpers
// ============================================================================

func ownerOf(record *domain.TokenRecord) string {
	if record == nil {
		return ""
	}
	return record.Metadata.Owner
}

func ownerOrDefault(record *domain.TokenRecord, globalRoot string) string {
	if record != nil && record.Metadata.Root != "" {
		return record.Metadata.Root
	}
	return globalRoot
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func bodyString(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}

// runAsUserHint reports the run-as-user parameter, used by authorization
// to decide whether a specific identity (as opposed to the wildcard) was
// requested.
func runAsUserHint(params domain.ServiceParameters) string {
	return params.RunAsUser
}

func editableProjectionsEqual(newParams domain.ServiceParameters, newMeta domain.TokenMetadata, oldParams domain.ServiceParameters, oldMeta domain.TokenMetadata) bool {
	return reflect.DeepEqual(editableProjection(newParams, newMeta), editableProjection(oldParams, oldMeta))
}

func editableProjection(params domain.ServiceParameters, meta domain.TokenMetadata) map[string]any {
	m := hash.Sanitize(params, meta)
	delete(m, domain.KeyLastUpdateTime)
	delete(m, domain.KeyLastUpdateUser)
	return m
}

// decodeInto and encodeFrom round-trip through encoding/json to move
// between the KV adapter's opaque map[string]any values and the
// registry's structured types, since the KV adapter (§4.1) is defined
// generically over maps rather than any one schema.
func decodeInto(raw map[string]any, target any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, target)
}

func encodeFrom(v any) (map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeServiceParameters extracts recognized parameter keys from a
// decoded JSON request body, tolerating the numeric types
// encoding/json produces (float64) as well as pre-typed values a
// programmatic caller (tests, the CLI) might supply directly.
func decodeServiceParameters(body map[string]any) (domain.ServiceParameters, error) {
	var p domain.ServiceParameters
	p.Cmd = bodyString(body, domain.KeyCmd)
	p.HealthCheck = bodyString(body, domain.KeyHealthCheck)
	p.Authentication = bodyString(body, domain.KeyAuthentication)
	p.PermittedUser = bodyString(body, domain.KeyPermittedUser)
	p.RunAsUser = bodyString(body, domain.KeyRunAsUser)

	if v, present := body[domain.KeyCPUs]; present {
		f, err := toFloat64(v)
		if err != nil {
			return p, domain.ErrUnknownKey.WithDetails(domain.KeyCPUs)
		}
		p.CPUs = f
	}
	if v, present := body[domain.KeyMemoryMB]; present {
		n, err := toInt64(v)
		if err != nil {
			return p, domain.ErrUnknownKey.WithDetails(domain.KeyMemoryMB)
		}
		p.MemoryMB = n
	}
	if v, present := body[domain.KeyInterstitialSecs]; present {
		n, err := toInt64(v)
		if err != nil {
			return p, domain.ErrUnknownKey.WithDetails(domain.KeyInterstitialSecs)
		}
		p.InterstitialSecs = n
	}
	if v, present := body[domain.KeyPorts]; present {
		ports, err := toIntSlice(v)
		if err != nil {
			return p, domain.ErrUnknownKey.WithDetails(domain.KeyPorts)
		}
		p.Ports = ports
	}
	return p, nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toIntSlice(v any) ([]int, error) {
	raw, ok := v.([]any)
	if !ok {
		if ints, ok := v.([]int); ok {
			return ints, nil
		}
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		n, err := toInt64(item)
		if err != nil {
			return nil, err
		}
		out = append(out, int(n))
	}
	return out, nil
}

// parseLastUpdateTime accepts either an epoch-millisecond number or an
// ISO-8601 string (§4.5 step 2).
func parseLastUpdateTime(v any) (int64, error) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return 0, err
		}
		return parsed.UnixMilli(), nil
	default:
		return toInt64(v)
	}
}
