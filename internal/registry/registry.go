package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Options configures a Registry instance.
type Options struct {
	// Admin is the administrator identity; it is verified at construction
	// and owns the pause switch and the authority to verify others.
	Admin string
	// StrictCustody enforces that only the current custodian may record a
	// transfer and that cumulative transfers never exceed product quantity.
	StrictCustody bool
	// EventBuffer sizes the notification log channel. Zero means default.
	EventBuffer int
}

const defaultEventBuffer = 256

// Registry is the authoritative ledger of identities, batches, products,
// transactions and supply-chain steps. All mutations are serialized behind
// one mutex and apply all-or-nothing: a precondition violation leaves no
// partial state behind. Reads observe only committed state.
type Registry struct {
	mu            sync.Mutex
	admin         string
	strictCustody bool
	paused        bool

	identities   map[string]*models.Identity
	batches      map[string]*models.Batch
	products     map[string]*models.Product
	transactions map[string][]models.Transaction
	steps        map[string][]models.SupplyChainStep

	seq    uint64
	events chan models.Event

	now    func() time.Time
	logger *zap.Logger
}

// New constructs a Registry with opts.Admin as its first verified identity.
func New(opts Options, logger *zap.Logger) (*Registry, error) {
	if opts.Admin == "" {
		return nil, fmt.Errorf("admin identity must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	r := &Registry{
		admin:         opts.Admin,
		strictCustody: opts.StrictCustody,
		identities:    make(map[string]*models.Identity),
		batches:       make(map[string]*models.Batch),
		products:      make(map[string]*models.Product),
		transactions:  make(map[string][]models.Transaction),
		steps:         make(map[string][]models.SupplyChainStep),
		events:        make(chan models.Event, buffer),
		now:           time.Now,
		logger:        logger,
	}

	r.identities[opts.Admin] = &models.Identity{
		ID:         opts.Admin,
		Verified:   true,
		VerifiedAt: r.now(),
	}

	return r, nil
}

// Events exposes the append-only notification log. Consumers that fall
// behind the buffer lose events; the log is observational, not part of the
// registry's correctness contract.
func (r *Registry) Events() <-chan models.Event {
	return r.events
}

// Close closes the notification log. No mutation may follow a Close.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.events)
}

// Admin returns the administrator identity fixed at construction.
func (r *Registry) Admin() string {
	return r.admin
}

// VerifyIdentity marks target as a verified participant. Only the
// administrator may call it; re-verifying is a no-op success. Verification
// stays available while the registry is paused so the administrator can
// prepare accounts before resuming writes.
func (r *Registry) VerifyIdentity(caller, target string) (models.Receipt, error) {
	if target == "" {
		return models.Receipt{}, invalidArgument("target identity must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return models.Receipt{}, unauthorized("identity %q is not the administrator", caller)
	}

	id, ok := r.identities[target]
	if !ok {
		id = &models.Identity{ID: target}
		r.identities[target] = id
	}
	if !id.Verified {
		id.Verified = true
		id.VerifiedAt = r.now()
	}

	return r.emit(models.EventIdentityVerified, target, caller, nil), nil
}

// RegisterBatch creates a new immutable batch record owned by caller.
func (r *Registry) RegisterBatch(caller, batchNumber, seedVariety string, plantingDate time.Time, totalQuantity float64) (models.Receipt, error) {
	if batchNumber == "" {
		return models.Receipt{}, invalidArgument("batch number must not be empty")
	}
	if totalQuantity < 0 {
		return models.Receipt{}, invalidArgument("total quantity must not be negative, got %v", totalQuantity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return models.Receipt{}, systemPaused()
	}
	if !r.verified(caller) {
		return models.Receipt{}, unauthorized("identity %q is not verified", caller)
	}
	if _, exists := r.batches[batchNumber]; exists {
		return models.Receipt{}, duplicateKey("batch %q already registered", batchNumber)
	}

	r.batches[batchNumber] = &models.Batch{
		BatchNumber:   batchNumber,
		SeedVariety:   seedVariety,
		PlantingDate:  plantingDate,
		TotalQuantity: totalQuantity,
		Farmer:        caller,
		Exists:        true,
		CreatedAt:     r.now(),
	}

	return r.emit(models.EventBatchCreated, batchNumber, caller, map[string]any{
		"seed_variety":   seedVariety,
		"total_quantity": totalQuantity,
	}), nil
}

// ProductInput carries the fields required to register a product.
type ProductInput struct {
	QRCode       string
	Name         string
	Variety      string
	IronContent  float64
	Biofortified bool
	Quantity     float64
	HarvestDate  time.Time
	ContentHash  string
	BatchNumber  string
}

// RegisterProduct creates a product record in status "registered" with the
// caller as creator and initial custodian. The optional batch link must
// reference an existing batch.
func (r *Registry) RegisterProduct(caller string, in ProductInput) (models.Receipt, error) {
	if in.QRCode == "" {
		return models.Receipt{}, invalidArgument("qr code must not be empty")
	}
	if in.Quantity < 0 {
		return models.Receipt{}, invalidArgument("quantity must not be negative, got %v", in.Quantity)
	}
	if in.IronContent < 0 || in.IronContent > 200 {
		return models.Receipt{}, invalidArgument("iron content must be between 0 and 200 ppm, got %v", in.IronContent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return models.Receipt{}, systemPaused()
	}
	if !r.verified(caller) {
		return models.Receipt{}, unauthorized("identity %q is not verified", caller)
	}
	if _, exists := r.products[in.QRCode]; exists {
		return models.Receipt{}, duplicateKey("product %q already registered", in.QRCode)
	}
	if in.BatchNumber != "" {
		if _, exists := r.batches[in.BatchNumber]; !exists {
			return models.Receipt{}, notFound("batch %q does not exist", in.BatchNumber)
		}
	}

	r.products[in.QRCode] = &models.Product{
		QRCode:       in.QRCode,
		Name:         in.Name,
		Variety:      in.Variety,
		IronContent:  in.IronContent,
		Biofortified: in.Biofortified,
		Quantity:     in.Quantity,
		HarvestDate:  in.HarvestDate,
		ContentHash:  in.ContentHash,
		BatchNumber:  in.BatchNumber,
		Creator:      caller,
		Custodian:    caller,
		Remaining:    in.Quantity,
		Status:       models.StatusRegistered,
		CreatedAt:    r.now(),
	}

	return r.emit(models.EventProductRegistered, in.QRCode, caller, map[string]any{
		"name":     in.Name,
		"variety":  in.Variety,
		"quantity": in.Quantity,
	}), nil
}

// RecordTransaction appends a transfer of product quantity from caller to
// the recipient. Under strict custody the caller must be the product's
// current custodian and the transfer must fit in the remaining quantity.
func (r *Registry) RecordTransaction(caller, to, qrCode string, quantity, price float64, kind string) (models.Receipt, error) {
	if to == "" {
		return models.Receipt{}, invalidArgument("recipient identity must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return models.Receipt{}, systemPaused()
	}
	product, ok := r.products[qrCode]
	if !ok {
		return models.Receipt{}, notFound("product %q does not exist", qrCode)
	}
	if !r.verified(caller) {
		return models.Receipt{}, unauthorized("identity %q is not verified", caller)
	}
	if !r.verified(to) {
		return models.Receipt{}, unauthorized("recipient %q is not verified", to)
	}
	if r.strictCustody {
		if caller != product.Custodian {
			return models.Receipt{}, unauthorized("identity %q is not the current custodian of product %q", caller, qrCode)
		}
		if quantity <= 0 {
			return models.Receipt{}, invalidArgument("transfer quantity must be positive, got %v", quantity)
		}
		if quantity > product.Remaining {
			return models.Receipt{}, invalidArgument("transfer of %v exceeds remaining quantity %v", quantity, product.Remaining)
		}
	}

	tx := models.Transaction{
		From:      caller,
		To:        to,
		QRCode:    qrCode,
		Quantity:  quantity,
		Price:     price,
		Kind:      kind,
		Timestamp: r.now(),
	}
	r.transactions[qrCode] = append(r.transactions[qrCode], tx)

	if r.strictCustody {
		product.Remaining -= quantity
		product.Custodian = to
	}
	advanceStatus(product, kind)

	return r.emit(models.EventTransactionRecorded, qrCode, caller, map[string]any{
		"to":       to,
		"quantity": quantity,
		"price":    price,
		"kind":     kind,
	}), nil
}

// AddSupplyChainStep appends one provenance event to the product's trail.
func (r *Registry) AddSupplyChainStep(caller, qrCode, action, description, location string) (models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return models.Receipt{}, systemPaused()
	}
	product, ok := r.products[qrCode]
	if !ok {
		return models.Receipt{}, notFound("product %q does not exist", qrCode)
	}
	if r.strictCustody && !r.mayActOn(caller, product) {
		return models.Receipt{}, unauthorized("identity %q may not append steps for product %q", caller, qrCode)
	}

	step := models.SupplyChainStep{
		Actor:       caller,
		Action:      action,
		Description: description,
		Location:    location,
		Timestamp:   r.now(),
	}
	r.steps[qrCode] = append(r.steps[qrCode], step)
	advanceStatus(product, action)

	return r.emit(models.EventSupplyChainStepAdded, qrCode, caller, map[string]any{
		"action":   action,
		"location": location,
	}), nil
}

// VerifyProduct flips the product's verified flag. Idempotent; it never
// touches the status field.
func (r *Registry) VerifyProduct(caller, qrCode string) (models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return models.Receipt{}, systemPaused()
	}
	product, ok := r.products[qrCode]
	if !ok {
		return models.Receipt{}, notFound("product %q does not exist", qrCode)
	}
	if r.strictCustody && !r.mayActOn(caller, product) {
		return models.Receipt{}, unauthorized("identity %q may not verify product %q", caller, qrCode)
	}

	product.Verified = true

	return r.emit(models.EventProductVerified, qrCode, caller, nil), nil
}

// Pause stops every mutating operation except VerifyIdentity and Unpause.
func (r *Registry) Pause(caller string) (models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return models.Receipt{}, unauthorized("identity %q is not the administrator", caller)
	}
	r.paused = true

	return r.emit(models.EventRegistryPaused, "", caller, nil), nil
}

// Unpause resumes mutating operations.
func (r *Registry) Unpause(caller string) (models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return models.Receipt{}, unauthorized("identity %q is not the administrator", caller)
	}
	r.paused = false

	return r.emit(models.EventRegistryUnpaused, "", caller, nil), nil
}

// Paused reports the global pause state.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// IsVerified reports whether the identity has been verified.
func (r *Registry) IsVerified(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verified(identity)
}

// GetBatch returns a copy of the batch record.
func (r *Registry) GetBatch(batchNumber string) (models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[batchNumber]
	if !ok {
		return models.Batch{}, notFound("batch %q does not exist", batchNumber)
	}
	return *batch, nil
}

// GetProduct returns a copy of the product record.
func (r *Registry) GetProduct(qrCode string) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[qrCode]
	if !ok {
		return models.Product{}, notFound("product %q does not exist", qrCode)
	}
	return *product, nil
}

// IsProductVerified reports whether the product carries the verified flag.
func (r *Registry) IsProductVerified(qrCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[qrCode]
	if !ok {
		return false, notFound("product %q does not exist", qrCode)
	}
	return product.Verified, nil
}

// GetSupplyChainHistory returns the product's provenance trail in insertion
// order. A product with no recorded steps yields an empty slice.
func (r *Registry) GetSupplyChainHistory(qrCode string) ([]models.SupplyChainStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[qrCode]; !ok {
		return nil, notFound("product %q does not exist", qrCode)
	}

	history := make([]models.SupplyChainStep, len(r.steps[qrCode]))
	copy(history, r.steps[qrCode])
	return history, nil
}

// GetTransactions returns the product's transfer log in insertion order.
func (r *Registry) GetTransactions(qrCode string) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[qrCode]; !ok {
		return nil, notFound("product %q does not exist", qrCode)
	}

	txs := make([]models.Transaction, len(r.transactions[qrCode]))
	copy(txs, r.transactions[qrCode])
	return txs, nil
}

// StateDigest computes a deterministic digest of the committed state, used
// by the anchor scheduler to checkpoint the ledger.
func (r *Registry) StateDigest() models.Anchor {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := sha256.New()
	fmt.Fprintf(h, "seq=%d paused=%t\n", r.seq, r.paused)

	for _, id := range sortedKeys(r.identities) {
		fmt.Fprintf(h, "identity %s verified=%t\n", id, r.identities[id].Verified)
	}
	for _, key := range sortedKeys(r.batches) {
		b := r.batches[key]
		fmt.Fprintf(h, "batch %s farmer=%s variety=%s quantity=%v\n", key, b.Farmer, b.SeedVariety, b.TotalQuantity)
	}
	for _, key := range sortedKeys(r.products) {
		p := r.products[key]
		fmt.Fprintf(h, "product %s creator=%s custodian=%s remaining=%v status=%s verified=%t steps=%d txs=%d\n",
			key, p.Creator, p.Custodian, p.Remaining, p.Status, p.Verified, len(r.steps[key]), len(r.transactions[key]))
	}

	return models.Anchor{
		Seq:       r.seq,
		Digest:    hex.EncodeToString(h.Sum(nil)),
		Timestamp: r.now(),
	}
}

// mayActOn reports whether the caller may verify or append steps for the
// product: its creator, its current custodian, or the administrator. Must be
// called with the mutex held.
func (r *Registry) mayActOn(caller string, product *models.Product) bool {
	return caller == product.Creator || caller == product.Custodian || caller == r.admin
}

// verified must be called with the mutex held.
func (r *Registry) verified(identity string) bool {
	id, ok := r.identities[identity]
	return ok && id.Verified
}

// emit must be called with the mutex held so sequence numbers follow the
// global mutation order. A full buffer drops the event rather than blocking
// the write path.
func (r *Registry) emit(name models.EventName, key, actor string, fields map[string]any) models.Receipt {
	r.seq++
	ev := models.Event{
		Seq:       r.seq,
		Name:      name,
		Key:       key,
		Actor:     actor,
		Timestamp: r.now(),
		Fields:    fields,
	}

	select {
	case r.events <- ev:
	default:
		r.logger.Warn("event buffer full, dropping event",
			zap.Uint64("seq", ev.Seq),
			zap.String("event", string(name)))
	}

	return models.Receipt{Event: name, Seq: ev.Seq, Key: key, Timestamp: ev.Timestamp}
}

// actionStatus maps step actions and transaction kinds to the status they
// move a product into. Unknown labels leave the status alone.
var actionStatus = map[string]models.Status{
	"transfer":    models.StatusInTransit,
	"transported": models.StatusInTransit,
	"distributed": models.StatusInTransit,
	"processed":   models.StatusProcessed,
	"processing":  models.StatusProcessed,
	"packaged":    models.StatusProcessed,
	"sale":        models.StatusSold,
	"sold":        models.StatusSold,
}

// advanceStatus moves the product forward when the action maps to a later
// status. Transitions are monotonic; earlier or unknown actions are ignored.
func advanceStatus(p *models.Product, action string) {
	next, ok := actionStatus[strings.ToLower(action)]
	if ok && p.Status.Before(next) {
		p.Status = next
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
