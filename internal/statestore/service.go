package statestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ilyafedotov-ops/tfstatectl/internal/backendadapter"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/ilyafedotov-ops/tfstatectl/internal/drift"
	"github.com/ilyafedotov-ops/tfstatectl/internal/tfstate"
)

// snapshotCacheSize bounds the in-process cache of full snapshot reads
// (including canonical JSON) — it exists to spare the backing store
// repeated large-payload fetches for hot snapshots, not for correctness.
const snapshotCacheSize = 256

// Service orchestrates the State Engine's ingest, query, mutation, and
// drift-detection operations atop a Repository, mirroring the teacher's
// thin-service-over-repository pattern.
type Service struct {
	repo  Repository
	cache *lru.Cache[string, *models.StateSnapshot]
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	cache, _ := lru.New[string, *models.StateSnapshot](snapshotCacheSize)
	return &Service{repo: repo, cache: cache}
}

// Import fetches state bytes via a backend adapter (if rawBytes is nil),
// parses them, and persists the resulting snapshot and its children.
func (s *Service) Import(ctx context.Context, projectID, workspace string, backendCfg *backendadapter.Config, backendConfigRaw map[string]any, rawBytes []byte) (*models.StateSnapshot, error) {
	var backendTag string
	if rawBytes == nil {
		result, err := backendadapter.Fetch(ctx, backendCfg, nil)
		if err != nil {
			return nil, err
		}
		rawBytes = result.RawBytes
		backendTag = result.BackendTag
	} else {
		backendTag = string(backendCfg.Type)
	}

	doc, err := tfstate.Parse(rawBytes, backendTag)
	if err != nil {
		return nil, err
	}

	canonical := tfstate.CanonicalJSON(doc.Raw)
	canonicalSum := sha256.Sum256(canonical)

	snapshot := &models.StateSnapshot{
		ID:               bunx.NewUUIDv7(),
		ProjectID:        projectID,
		Workspace:        workspace,
		BackendType:      backendTag,
		BackendConfig:    models.JSONBlob(backendConfigRaw),
		Serial:           doc.Serial,
		TerraformVersion: doc.TerraformVersion,
		Lineage:          doc.Lineage,
		ResourceCount:    doc.ResourceCount,
		OutputCount:      doc.OutputCount,
		SizeBytes:        doc.SizeBytes,
		Checksum:         hex.EncodeToString(canonicalSum[:]),
		CanonicalJSON:    string(canonical),
	}

	resources := toResourceRows(snapshot.ID, doc.Resources)
	for _, r := range resources {
		r.ID = bunx.NewUUIDv7()
	}
	outputs := toOutputRows(snapshot.ID, doc.Outputs)
	for _, o := range outputs {
		o.ID = bunx.NewUUIDv7()
	}

	if err := s.repo.Persist(ctx, snapshot, resources, outputs); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// List returns snapshots for a project ordered newest first.
func (s *Service) List(ctx context.Context, projectID string, workspace *string) ([]*models.StateSnapshot, error) {
	return s.repo.List(ctx, projectID, workspace)
}

// Get fetches one snapshot, eliding canonical JSON unless requested. Full
// reads (includeSnapshot=true) are served from an in-process LRU cache
// when present — mutations evict their snapshot's entry, so a cache hit is
// always the post-mutation view.
func (s *Service) Get(ctx context.Context, id string, includeSnapshot bool) (*models.StateSnapshot, error) {
	if !includeSnapshot {
		return s.repo.Get(ctx, id, false)
	}
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}
	snapshot, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, snapshot)
	return snapshot, nil
}

// Resources returns a deterministic page of a snapshot's resources,
// optionally narrowed by a bexpr filter expression over address/type/
// mode/name/provider (see filterResources).
func (s *Service) Resources(ctx context.Context, snapshotID string, limit, offset int, filter string) ([]*models.ResourceInstance, error) {
	resources, err := s.repo.Resources(ctx, snapshotID, limit, offset)
	if err != nil {
		return nil, err
	}
	return filterResources(resources, filter)
}

// Outputs returns a snapshot's outputs ordered by name.
func (s *Service) Outputs(ctx context.Context, snapshotID string) ([]*models.Output, error) {
	return s.repo.Outputs(ctx, snapshotID)
}

// RemoveAddresses implements the remove mutation in spec §4.4: walk the raw
// resource blocks, drop instances whose effective address is in targets,
// re-parse the result through C2, and replace the snapshot's children
// wholesale.
func (s *Service) RemoveAddresses(ctx context.Context, snapshotID string, targets []string) (*models.StateSnapshot, error) {
	snapshot, err := s.repo.Get(ctx, snapshotID, true)
	if err != nil {
		return nil, err
	}

	raw, err := decodeCanonical(snapshot.CanonicalJSON)
	if err != nil {
		return nil, err
	}

	targetSet := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		targetSet[t] = struct{}{}
	}

	changed := removeAddressesFromRaw(raw, targetSet)
	if !changed {
		return nil, newMutationError("none of the requested addresses matched")
	}

	return s.reparseAndReplace(ctx, snapshot, raw)
}

// MoveAddress implements the move mutation in spec §4.4.
func (s *Service) MoveAddress(ctx context.Context, snapshotID, source, destination string) (*models.StateSnapshot, error) {
	snapshot, err := s.repo.Get(ctx, snapshotID, true)
	if err != nil {
		return nil, err
	}

	raw, err := decodeCanonical(snapshot.CanonicalJSON)
	if err != nil {
		return nil, err
	}

	normalizedSource := normalizeAddressIdentifier(source)
	normalizedDestination := normalizeAddressIdentifier(destination)

	changed := renameAddressInRaw(raw, normalizedSource, normalizedDestination)
	if !changed {
		return nil, newMutationError("source not found")
	}

	return s.reparseAndReplace(ctx, snapshot, raw)
}

func (s *Service) reparseAndReplace(ctx context.Context, snapshot *models.StateSnapshot, raw map[string]any) (*models.StateSnapshot, error) {
	canonical := tfstate.CanonicalJSON(raw)
	doc, err := tfstate.Parse(canonical, snapshot.BackendType)
	if err != nil {
		return nil, err
	}

	expectedChecksum := snapshot.Checksum

	snapshot.Serial = doc.Serial
	snapshot.TerraformVersion = doc.TerraformVersion
	snapshot.Lineage = doc.Lineage
	snapshot.ResourceCount = doc.ResourceCount
	snapshot.OutputCount = doc.OutputCount
	snapshot.SizeBytes = doc.SizeBytes
	snapshot.Checksum = doc.Checksum
	snapshot.CanonicalJSON = string(canonical)

	resources := toResourceRows(snapshot.ID, doc.Resources)
	for _, r := range resources {
		r.ID = bunx.NewUUIDv7()
	}
	outputs := toOutputRows(snapshot.ID, doc.Outputs)
	for _, o := range outputs {
		o.ID = bunx.NewUUIDv7()
	}

	if err := s.repo.ReplaceChildren(ctx, snapshot, resources, outputs, expectedChecksum); err != nil {
		return nil, err
	}
	s.cache.Remove(snapshot.ID)
	return snapshot, nil
}

// DetectDrift runs the Drift Analyzer (C3) against a snapshot's resources
// and persists the resulting DriftDetection row.
func (s *Service) DetectDrift(ctx context.Context, projectID, workspace string, snapshot *models.StateSnapshot, plan map[string]any, method string) (*models.DriftDetection, error) {
	resources, err := s.repo.Resources(ctx, snapshot.ID, 0, 0)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(resources))
	for _, r := range resources {
		addresses = append(addresses, r.Address)
	}

	if err := drift.ValidatePlan(plan); err != nil {
		return nil, err
	}

	summary := drift.Analyze(addresses, plan)

	detail := models.JSONBlob{
		"state_only":   toAnySlice(summary.Details.StateOnly),
		"plan_only":    toAnySlice(summary.Details.PlanOnly),
		"plan_actions": summary.Details.PlanActions,
	}

	record := &models.DriftDetection{
		ID:           bunx.NewUUIDv7(),
		ProjectID:    projectID,
		SnapshotID:   &snapshot.ID,
		Workspace:    workspace,
		Method:       method,
		Added:        summary.ResourcesAdded,
		Modified:     summary.ResourcesChanged,
		Destroyed:    summary.ResourcesDestroyed,
		TotalDrifted: summary.ResourcesAdded + summary.ResourcesChanged + summary.ResourcesDestroyed,
		Detail:       detail,
	}
	if err := s.repo.SaveDrift(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

func decodeCanonical(canonicalJSON string) (map[string]any, error) {
	doc, err := tfstate.Parse([]byte(canonicalJSON), "")
	if err != nil {
		return nil, fmt.Errorf("decode stored canonical json: %w", err)
	}
	return doc.Raw, nil
}

// removeAddressesFromRaw mutates raw in place per spec §4.4's remove rule,
// grounded on the original _remove_addresses_from_snapshot algorithm.
func removeAddressesFromRaw(raw map[string]any, targets map[string]struct{}) bool {
	resourcesAny, _ := raw["resources"].([]any)
	updated := make([]any, 0, len(resourcesAny))
	removed := false

	for _, item := range resourcesAny {
		block, ok := item.(map[string]any)
		if !ok {
			updated = append(updated, item)
			continue
		}

		instances, _ := block["instances"].([]any)
		if len(instances) == 0 {
			addr := resolveResourceAddress(block)
			if _, hit := targets[addr]; hit {
				removed = true
				continue
			}
			updated = append(updated, block)
			continue
		}

		moduleAddress := optStringAny(block["module"])
		mode := stringOrDefaultAny(block["mode"], "managed")
		resourceType := stringOrDefaultAny(block["type"], "unknown")
		name := stringOrDefaultAny(block["name"], "unnamed")
		explicitAddress, _ := block["address"].(string)

		remaining := make([]any, 0, len(instances))
		for _, inst := range instances {
			instMap, ok := inst.(map[string]any)
			if !ok {
				remaining = append(remaining, inst)
				continue
			}
			indexKey := indexKeyStringAny(instMap["index_key"])
			addr := composeInstanceAddressAny(explicitAddress, moduleAddress, mode, resourceType, name, indexKey)
			if _, hit := targets[addr]; hit {
				removed = true
				continue
			}
			remaining = append(remaining, inst)
		}

		if len(remaining) == 0 {
			removed = true
			continue
		}
		block["instances"] = remaining
		updated = append(updated, block)
	}

	if removed {
		raw["resources"] = updated
	}
	return removed
}

// renameAddressInRaw mutates raw in place per spec §4.4's move rule.
func renameAddressInRaw(raw map[string]any, normalizedSource, normalizedDestination string) bool {
	resourcesAny, _ := raw["resources"].([]any)
	for _, item := range resourcesAny {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if resolveResourceAddress(block) == normalizedSource {
			block["address"] = normalizedDestination
			return true
		}
	}
	return false
}

func normalizeAddressIdentifier(value string) string {
	base := value
	if idx := strings.Index(value, "["); idx >= 0 {
		base = value[:idx]
	}
	return strings.TrimSpace(base)
}

func resolveResourceAddress(block map[string]any) string {
	if explicit, ok := block["address"].(string); ok && explicit != "" {
		return explicit
	}
	moduleAddress := optStringAny(block["module"])
	mode := stringOrDefaultAny(block["mode"], "managed")
	resourceType := stringOrDefaultAny(block["type"], "unknown")
	name := stringOrDefaultAny(block["name"], "unnamed")
	return composeAddressAny(moduleAddress, mode, resourceType, name, nil)
}

func composeAddressAny(moduleAddress *string, mode, resourceType, name string, indexKey *string) string {
	base := fmt.Sprintf("%s.%s.%s", mode, resourceType, name)
	if moduleAddress != nil && *moduleAddress != "" {
		base = *moduleAddress + "." + base
	}
	if indexKey != nil {
		base = fmt.Sprintf("%s[%s]", base, *indexKey)
	}
	return base
}

func composeInstanceAddressAny(explicitAddress string, moduleAddress *string, mode, resourceType, name string, indexKey *string) string {
	var address string
	if explicitAddress != "" {
		address = explicitAddress
	} else {
		address = composeAddressAny(moduleAddress, mode, resourceType, name, nil)
	}
	if indexKey == nil {
		return address
	}
	suffix := fmt.Sprintf("[%s]", *indexKey)
	if strings.HasSuffix(address, suffix) {
		return address
	}
	return address + suffix
}

func optStringAny(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

func stringOrDefaultAny(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func indexKeyStringAny(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	case float64:
		s := fmt.Sprintf("%v", val)
		if val == float64(int64(val)) {
			s = fmt.Sprintf("%d", int64(val))
		}
		return &s
	default:
		s := fmt.Sprintf("%v", val)
		return &s
	}
}
