package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/billingrule"
	"github.com/warebill/warebill/internal/domain/invoice"
	"github.com/warebill/warebill/internal/domain/performance"
	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/formula"
	"github.com/warebill/warebill/internal/types"
)

// BillingService computes invoice lines for a billing window. It never
// persists anything; the invoice service owns assembly and storage.
type BillingService interface {
	// ComputeLines evaluates the project's effective rules against the
	// window's unbilled records, in priority order with creation sequence as
	// the tie-breaker. Each record is claimed by at most one rule evaluation;
	// the same input always yields the same lines in the same order.
	ComputeLines(ctx context.Context, proj *project.Project, periodStart, periodEnd time.Time) ([]*invoice.LineItem, error)

	// PreviewLines runs the same computation tolerantly: a project without
	// effective rules and lines whose price cannot be resolved become
	// warnings instead of failures, so a preview always renders.
	PreviewLines(ctx context.Context, proj *project.Project, periodStart, periodEnd time.Time) (*BillingComputation, error)
}

// BillingComputation is the full output of a billing pass: the lines, the
// rules that produced them, the record population they drew from, and any
// warnings a tolerant pass collected.
type BillingComputation struct {
	Lines         []*invoice.LineItem
	Rules         []*billingrule.BillingRule
	DeliveryCount int
	LaborCount    int
	Warnings      []string
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
	}
}

// ruleIdentity is the slice of a rule (or an embedded mixed component) the
// line computer needs
type ruleIdentity struct {
	RuleID      string
	Name        string
	RuleType    types.RuleType
	Source      types.PriceSource
	GroupingKey types.GroupingKey
}

func (s *billingService) ComputeLines(ctx context.Context, proj *project.Project, periodStart, periodEnd time.Time) ([]*invoice.LineItem, error) {
	comp, err := s.compute(ctx, proj, periodStart, periodEnd, nil)
	if err != nil {
		return nil, err
	}
	return comp.Lines, nil
}

func (s *billingService) PreviewLines(ctx context.Context, proj *project.Project, periodStart, periodEnd time.Time) (*BillingComputation, error) {
	pass := &computePass{lenient: true}
	comp, err := s.compute(ctx, proj, periodStart, periodEnd, pass)
	if err != nil {
		return nil, err
	}
	comp.Warnings = pass.warnings
	return comp, nil
}

// computePass collects the deviations a tolerant computation is allowed to
// absorb. A nil pass means strict evaluation.
type computePass struct {
	lenient  bool
	warnings []string
}

func (p *computePass) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (s *billingService) compute(ctx context.Context, proj *project.Project, periodStart, periodEnd time.Time, pass *computePass) (*BillingComputation, error) {
	rules, err := s.BillingRuleRepo.ListEffective(ctx, proj.ID, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		if pass == nil || !pass.lenient {
			return nil, ierr.NewError("no applicable billing rule").
				WithHintf("Project %s has no active rule effective in the billing period", proj.ID).
				Mark(ierr.ErrNoApplicableRule)
		}
		pass.warnf("no active billing rule is effective in the period for project %s", proj.ID)
	}

	performanceService := NewPerformanceService(s.ServiceParams)
	records, err := performanceService.ListUnbilledRecords(ctx, &types.PerformanceFilter{
		ProjectID:   proj.ID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		return nil, err
	}

	comp := &BillingComputation{Rules: rules}
	for _, r := range records {
		if r.Kind == types.PerformanceKindLabor {
			comp.LaborCount++
		} else {
			comp.DeliveryCount++
		}
	}

	precision := proj.CurrencyPrecision()
	claimed := make(map[string]struct{})

	for _, rule := range rules {
		cfg, err := rule.Config()
		if err != nil {
			return nil, err
		}

		ruleLines, err := s.computeRuleLines(ctx, proj, rule, cfg, records, claimed, precision, pass)
		if err != nil {
			return nil, err
		}
		comp.Lines = append(comp.Lines, ruleLines...)
	}

	for i, line := range comp.Lines {
		line.Sequence = i + 1
	}
	return comp, nil
}

func (s *billingService) computeRuleLines(
	ctx context.Context,
	proj *project.Project,
	rule *billingrule.BillingRule,
	cfg billingrule.Config,
	records []*performance.Record,
	claimed map[string]struct{},
	precision int32,
	pass *computePass,
) ([]*invoice.LineItem, error) {
	identity := ruleIdentity{
		RuleID:      rule.ID,
		Name:        rule.Name,
		RuleType:    rule.RuleType,
		Source:      rule.PriceSource,
		GroupingKey: rule.GroupingKey,
	}

	switch cfg := cfg.(type) {
	case *billingrule.UnitConfig:
		inputs := PriceInputs{
			UnitPrice:     cfg.UnitPrice,
			PriceListCode: cfg.PriceListCode,
			PriceField:    cfg.PriceField,
			Formula:       cfg.Formula,
		}
		return s.computeVariableLines(ctx, proj, identity, inputs, cfg.Filters, cfg.GroupBy, records, claimed, precision, pass)

	case *billingrule.LaborConfig:
		inputs := PriceInputs{
			UnitPrice:     cfg.UnitPrice,
			PriceListCode: cfg.PriceListCode,
			PriceField:    cfg.PriceField,
			Formula:       cfg.Formula,
		}
		return s.computeVariableLines(ctx, proj, identity, inputs, cfg.Filters, cfg.GroupBy, records, claimed, precision, pass)

	case *billingrule.FixedConfig:
		return s.computeMasterLines(ctx, proj, identity, false, precision, pass)

	case *billingrule.MixedConfig:
		return s.computeMixedLines(ctx, proj, rule, cfg, records, claimed, precision, pass)
	}

	return nil, ierr.NewError("unsupported rule config").
		WithHintf("Rule %s carries a config the engine cannot evaluate", rule.ID).
		Mark(ierr.ErrSystem)
}

// computeMixedLines emits the master rule's fixed lines first, then the lines
// of each embedded variable component. Everything bills under the mixed rule's
// identity.
func (s *billingService) computeMixedLines(
	ctx context.Context,
	proj *project.Project,
	rule *billingrule.BillingRule,
	cfg *billingrule.MixedConfig,
	records []*performance.Record,
	claimed map[string]struct{},
	precision int32,
	pass *computePass,
) ([]*invoice.LineItem, error) {
	identity := ruleIdentity{
		RuleID:      rule.ID,
		Name:        rule.Name,
		RuleType:    rule.RuleType,
		Source:      rule.PriceSource,
		GroupingKey: rule.GroupingKey,
	}

	lines, err := s.computeMasterLines(ctx, proj, identity, true, precision, pass)
	if err != nil {
		return nil, err
	}

	for _, comp := range cfg.Components {
		compFormula := comp.Config.Formula
		if compFormula == "" {
			compFormula = cfg.Formula
		}
		compIdentity := ruleIdentity{
			RuleID:      rule.ID,
			Name:        rule.Name,
			RuleType:    comp.RuleType,
			Source:      comp.Source,
			GroupingKey: types.GroupingKeyNone,
		}
		if len(comp.Config.GroupBy) > 0 {
			compIdentity.GroupingKey = types.GroupingKeyMixed
		}
		inputs := PriceInputs{
			UnitPrice:     comp.Config.UnitPrice,
			PriceListCode: comp.Config.PriceListCode,
			PriceField:    comp.Config.PriceField,
			Formula:       compFormula,
		}
		compLines, err := s.computeVariableLines(ctx, proj, compIdentity, inputs, comp.Config.Filters, comp.Config.GroupBy, records, claimed, precision, pass)
		if err != nil {
			return nil, err
		}
		lines = append(lines, compLines...)
	}
	return lines, nil
}

// computeMasterLines materializes the project's active master rule template.
// fixedOnly restricts the output to flat-fee items, which is what mixed rules
// seed from; a fixed rule emits every template line.
func (s *billingService) computeMasterLines(
	ctx context.Context,
	proj *project.Project,
	identity ruleIdentity,
	fixedOnly bool,
	precision int32,
	pass *computePass,
) ([]*invoice.LineItem, error) {
	master, err := s.MasterRuleRepo.GetActiveByProject(ctx, proj.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("no active master billing rule; fixed lines skipped",
				"project_id", proj.ID,
				"rule_id", identity.RuleID)
			if pass != nil && pass.lenient {
				pass.warnf("rule %q expects a master billing rule but the project has none active", identity.Name)
			}
			return nil, nil
		}
		return nil, err
	}

	var lines []*invoice.LineItem
	for _, item := range master.Items {
		if fixedOnly && !item.IsFixed {
			continue
		}

		// line IDs are assigned at persist time; a computed line carries
		// none so identical previews serialize identically
		line := &invoice.LineItem{
			RuleID:      lo.ToPtr(identity.RuleID),
			RuleType:    identity.RuleType,
			DisplayName: item.ItemName,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
		}
		if item.IsFixed {
			// flat fees carry their configured amount untouched
			line.Quantity = decimal.NewFromInt(1)
			line.Amount = item.UnitPrice
		} else {
			line.Quantity = item.Quantity
			line.Amount = item.Quantity.Mul(item.UnitPrice).Round(precision)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// computeVariableLines is the unit-measure line computer shared by EA, PALLET,
// LABOR, VOLUME and CONTAINER evaluations. It filters the eligible records,
// claims them, partitions them into buckets and prices one line per bucket.
func (s *billingService) computeVariableLines(
	ctx context.Context,
	proj *project.Project,
	identity ruleIdentity,
	inputs PriceInputs,
	filters []types.FilterCondition,
	groupBy []string,
	records []*performance.Record,
	claimed map[string]struct{},
	precision int32,
	pass *computePass,
) ([]*invoice.LineItem, error) {
	buckets := make(map[string][]*performance.Record)
	for _, r := range records {
		if _, ok := claimed[r.ID]; ok {
			continue
		}
		if !recordEligible(r, identity.RuleType) {
			continue
		}
		if !matchesFilters(r, filters) {
			continue
		}
		key, ok := bucketKey(r, identity.GroupingKey, groupBy)
		if !ok {
			continue
		}

		claimed[r.ID] = struct{}{}
		buckets[key] = append(buckets[key], r)
	}

	keys := lo.Keys(buckets)
	sort.Strings(keys)

	priceService := NewPriceService(s.ServiceParams)
	var lines []*invoice.LineItem
	for _, key := range keys {
		bucket := buckets[key]

		quantity := measureQuantity(identity.RuleType, bucket)
		pctx := buildPriceContext(bucket, quantity)

		displayName := identity.Name
		if key != "" {
			displayName = identity.Name + " - " + key
		}

		priceMissing := false
		unitPrice, err := priceService.Resolve(ctx, proj.ID, identity.Source, inputs, pctx)
		if err != nil {
			// a tolerant pass renders the line anyway and flags it
			if pass == nil || !pass.lenient || !ierr.IsPriceNotFound(err) {
				return nil, err
			}
			pass.warnf("no unit price could be resolved for %q", displayName)
			priceMissing = true
			unitPrice = decimal.Zero
		}

		sourceIDs := make([]string, 0, len(bucket))
		for _, r := range bucket {
			sourceIDs = append(sourceIDs, r.ID)
		}
		sort.Strings(sourceIDs)

		lines = append(lines, &invoice.LineItem{
			RuleID:          lo.ToPtr(identity.RuleID),
			RuleType:        identity.RuleType,
			DisplayName:     displayName,
			Quantity:        quantity,
			Unit:            lineUnit(identity.RuleType, bucket),
			UnitPrice:       unitPrice,
			Amount:          quantity.Mul(unitPrice).Round(precision),
			SourceRecordIDs: sourceIDs,
			PriceMissing:    priceMissing,
		})
	}
	return lines, nil
}

// recordEligible scopes rule types to record kinds: labor rules read labor
// entries, every other variable rule reads deliveries
func recordEligible(r *performance.Record, ruleType types.RuleType) bool {
	if ruleType == types.RuleTypeLabor {
		return r.Kind == types.PerformanceKindLabor
	}
	return r.Kind == types.PerformanceKindDelivery
}

// bucketKey resolves the record's value of the grouping key. A record lacking
// the key field is excluded rather than bucketed under an empty value.
func bucketKey(r *performance.Record, key types.GroupingKey, groupBy []string) (string, bool) {
	switch key {
	case types.GroupingKeyNone, "":
		return "", true
	case types.GroupingKeyMixed:
		parts := make([]string, 0, len(groupBy))
		for _, field := range groupBy {
			v, ok := r.FieldValue(field)
			if !ok {
				return "", false
			}
			parts = append(parts, fieldString(v))
		}
		return strings.Join(parts, "|"), true
	default:
		v, ok := r.FieldValue(key.String())
		if !ok {
			return "", false
		}
		return fieldString(v), true
	}
}

// measureQuantity computes the billable quantity of a bucket per rule type
func measureQuantity(ruleType types.RuleType, bucket []*performance.Record) decimal.Decimal {
	switch ruleType {
	case types.RuleTypeEA:
		total := decimal.Zero
		for _, r := range bucket {
			total = total.Add(r.Quantity)
		}
		return total
	case types.RuleTypePallet:
		return distinctCount(bucket, func(r *performance.Record) string { return r.PalletNo })
	case types.RuleTypeContainer:
		return distinctCount(bucket, func(r *performance.Record) string { return r.ContainerNo })
	case types.RuleTypeVolume:
		total := decimal.Zero
		for _, r := range bucket {
			total = total.Add(r.Volume)
		}
		return total
	case types.RuleTypeLabor:
		total := decimal.Zero
		for _, r := range bucket {
			total = total.Add(r.Hours)
		}
		return total
	}
	return decimal.Zero
}

func distinctCount(bucket []*performance.Record, keyFn func(*performance.Record) string) decimal.Decimal {
	seen := make(map[string]struct{}, len(bucket))
	for _, r := range bucket {
		if k := keyFn(r); k != "" {
			seen[k] = struct{}{}
		}
	}
	return decimal.NewFromInt(int64(len(seen)))
}

// buildPriceContext derives the values a price resolution may read from the
// bucket: formula variables and the hours-weighted labor rate
func buildPriceContext(bucket []*performance.Record, quantity decimal.Decimal) PriceContext {
	hours := decimal.Zero
	volume := decimal.Zero
	laborValue := decimal.Zero
	for _, r := range bucket {
		hours = hours.Add(r.Hours)
		volume = volume.Add(r.Volume)
		laborValue = laborValue.Add(r.Hours.Mul(r.LaborRate))
	}

	pctx := PriceContext{
		Vars: formula.Vars{
			"quantity":        quantity,
			"record_count":    decimal.NewFromInt(int64(len(bucket))),
			"hours":           hours,
			"volume":          volume,
			"pallet_count":    distinctCount(bucket, func(r *performance.Record) string { return r.PalletNo }),
			"container_count": distinctCount(bucket, func(r *performance.Record) string { return r.ContainerNo }),
		},
	}
	if hours.IsPositive() {
		pctx.LaborRate = laborValue.DivRound(hours, 12)
		pctx.HasLaborRate = true
		pctx.Vars["labor_rate"] = pctx.LaborRate
	}
	return pctx
}

// lineUnit picks the display unit of a line
func lineUnit(ruleType types.RuleType, bucket []*performance.Record) string {
	switch ruleType {
	case types.RuleTypePallet:
		return "PLT"
	case types.RuleTypeContainer:
		return "CNT"
	case types.RuleTypeVolume:
		return "M3"
	case types.RuleTypeLabor:
		return "HR"
	}
	for _, r := range bucket {
		if r.Unit != "" {
			return r.Unit
		}
	}
	return "EA"
}
