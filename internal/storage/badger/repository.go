package badger

import (
	"context"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/normalizer"
)

// Repository implements internal/interfaces.Repository against Badger.
// LRTRow is keyed by its canonical Name; LATRow by its
// unique SectionID.
type Repository struct {
	db     *DB
	logger arbor.ILogger
}

// NewRepository creates a Repository backed by db.
func NewRepository(db *DB, logger arbor.ILogger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetByName implements Repository.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.LRTRow, bool, error) {
	var row models.LRTRow
	if err := r.db.Store().Get(name, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, errs.Newf(errs.KindTransient, "get LRT row %s: %w", name, err)
	}
	return &row, true, nil
}

// GetByID implements Repository. The LRT row's name is also its storage
// key, so this is equivalent to GetByName; it is kept distinct for
// callers that only have an opaque ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.LRTRow, bool, error) {
	return r.GetByName(ctx, id)
}

// Upsert implements Repository, applying the §4.10 merge rule against
// any existing row with the same name (conflict on name).
func (r *Repository) Upsert(ctx context.Context, row *models.LRTRow) error {
	existing, found, err := r.GetByName(ctx, row.Name)
	if err != nil {
		return err
	}

	merged := row
	if found {
		merged = mergeLRTRows(existing, row)
	}

	if err := r.db.Store().Upsert(merged.Name, merged); err != nil {
		return errs.Newf(errs.KindConflict, "upsert LRT row %s: %w", merged.Name, err)
	}
	*row = *merged

	if r.logger != nil {
		r.logger.Debug().Str("law", merged.Name).Bool("merged_existing", found).Msg("LRT row upserted")
	}
	return nil
}

// UpdateEnacting implements Repository's dynamic-update path.
func (r *Repository) UpdateEnacting(ctx context.Context, name string, enacting []string, isEnacting bool, fn map[string]bool) error {
	row, found, err := r.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return errs.Newf(errs.KindNotFound, "update_enacting: %s not found", name)
	}

	row.Enacting = enacting
	row.IsEnacting = isEnacting
	row.Function = fn

	if err := r.db.Store().Upsert(row.Name, row); err != nil {
		return errs.Newf(errs.KindConflict, "update_enacting %s: %w", name, err)
	}

	if r.logger != nil {
		r.logger.Debug().Str("law", name).Int("enacting_count", len(enacting)).Msg("enacting array extended")
	}
	return nil
}

// LookupIsMaking implements Repository's single-batched-query contract.
func (r *Repository) LookupIsMaking(ctx context.Context, names []string) (map[string]bool, error) {
	out := make(map[string]bool, len(names))
	if len(names) == 0 {
		return out, nil
	}

	var rows []models.LRTRow
	query := badgerhold.Where("Name").In(toInterfaceSlice(names)...)
	if err := r.db.Store().Find(&rows, query); err != nil {
		return nil, errs.Newf(errs.KindTransient, "lookup_is_making: %w", err)
	}

	for _, row := range rows {
		out[row.Name] = row.IsMaking
	}
	for _, name := range names {
		if _, ok := out[name]; !ok {
			out[name] = false
		}
	}
	return out, nil
}

// InsertLATBatch implements Repository.
func (r *Repository) InsertLATBatch(ctx context.Context, rows []models.LATRow) error {
	for _, row := range rows {
		if err := r.db.Store().Upsert(row.SectionID, row); err != nil {
			return errs.Newf(errs.KindConflict, "insert LAT row %s: %w", row.SectionID, err)
		}
	}

	if r.logger != nil {
		r.logger.Debug().Int("count", len(rows)).Msg("LAT row batch inserted")
	}
	return nil
}

// LATByLawName implements Repository, returning rows sorted by sort_key.
func (r *Repository) LATByLawName(ctx context.Context, lawName string) ([]models.LATRow, error) {
	var rows []models.LATRow
	if err := r.db.Store().Find(&rows, badgerhold.Where("LawName").Eq(lawName)); err != nil {
		return nil, errs.Newf(errs.KindTransient, "LAT by law name %s: %w", lawName, err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SortKey < rows[j].SortKey })
	return rows, nil
}

func toInterfaceSlice(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// mergeLRTRows applies the normalizer's existing/new merge rule
// field-by-field between two LRTRows, by round-tripping both through
// ParsedLaw.
func mergeLRTRows(existing, next *models.LRTRow) *models.LRTRow {
	existingMap := LRTRowToParsedLaw(existing)
	nextMap := LRTRowToParsedLaw(next)
	merged := normalizer.Merge(existingMap, nextMap)
	row := ParsedLawToLRTRow(merged)
	row.RecordChangeLog = append(existing.RecordChangeLog, next.RecordChangeLog...)
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = next.UpdatedAt
	return row
}

// LRTRowToParsedLaw flattens an LRTRow into a ParsedLaw, the shape
// normalizer.Merge and StagedParser's callers operate on. It is the inverse
// of ParsedLawToLRTRow, which cmd/lrtscraper uses to turn a freshly-parsed
// record into the row Upsert expects.
func LRTRowToParsedLaw(row *models.LRTRow) models.ParsedLaw {
	p := models.ParsedLaw{
		"type_code": row.TypeCode, "year": row.Year, "number": row.Number, "name": row.Name,
		"title_en": row.Title,
		"live":      string(row.Live), "live_source": string(row.LiveSource), "live_conflict": row.LiveConflict,
		"family": row.Family, "family_ii": row.FamilyII, "function": row.Function,
		"amending": row.Amending, "amended_by": row.AmendedBy,
		"rescinding": row.Rescinding, "rescinded_by": row.RescindedBy,
		"enacting": row.Enacting, "enacted_by": row.EnactedBy, "enacted_by_meta": row.EnactedByMeta,
		"amending_stats": row.AmendingStats, "amended_by_stats": row.AmendedByStats,
		"is_making": row.IsMaking, "is_commencing": row.IsCommencing,
		"is_amending": row.IsAmending, "is_rescinding": row.IsRescinding, "is_enacting": row.IsEnacting,
		"geo_extent": row.GeoExtent, "geo_region": row.GeoRegion, "geo_detail": row.GeoDetail,
		"role": row.Role, "role_gvt": row.RoleGvt, "duty_type": row.DutyType, "popimar": row.POPIMAR,
		"duty_holder": []string(row.DutyHolder), "rights_holder": []string(row.RightsHolder),
		"responsibility_holder": []string(row.ResponsibilityHolder), "power_holder": []string(row.PowerHolder),
		"duties": row.Duties, "rights": row.Rights, "responsibilities": row.Responsibilities, "powers": row.Powers,
		"purpose": row.Purpose, "taxa_text_source": row.TaxaTextSource, "taxa_text_length": row.TaxaTextLength,
		"md_description": row.MDDescription, "md_modified": row.MDModified, "md_subjects": row.MDSubjects,
		"si_code": row.SICode, "md_total_paras": row.MDTotalParas, "md_images": row.MDImages,
		"md_date": row.MDDate, "md_enactment_date": row.MDEnactmentDate, "md_made_date": row.MDMadeDate,
		"md_coming_into_force": row.MDComingIntoForce, "md_restrict_extent": row.MDRestrictExtent,
		"md_restrict_start_date": row.MDRestrictStartDate, "pdf_href": row.PDFHref,
	}
	if row.LiveConflictInfo != nil {
		p["live_conflict_detail"] = *row.LiveConflictInfo
	}
	return p
}

// ParsedLawToLRTRow is the inverse of LRTRowToParsedLaw, used both by
// the upsert merge path and directly by cmd/lrtscraper to build the row
// it persists after StagedParser.Parse returns.
func ParsedLawToLRTRow(p models.ParsedLaw) *models.LRTRow {
	row := &models.LRTRow{
		TypeCode: p.GetString("type_code"), Year: p.GetInt("year"), Number: p.GetString("number"), Name: p.GetString("name"),
		Title: p.GetString("title_en"),
		Live:  models.LiveStatus(p.GetString("live")), LiveSource: models.LiveSource(p.GetString("live_source")), LiveConflict: p.GetBool("live_conflict"),
		Family: p.GetString("family"), FamilyII: p.GetString("family_ii"),
		Amending: p.GetStringSlice("amending"), AmendedBy: p.GetStringSlice("amended_by"),
		Rescinding: p.GetStringSlice("rescinding"), RescindedBy: p.GetStringSlice("rescinded_by"),
		Enacting: p.GetStringSlice("enacting"), EnactedBy: p.GetStringSlice("enacted_by"),
		IsMaking: p.GetBool("is_making"), IsCommencing: p.GetBool("is_commencing"),
		IsAmending: p.GetBool("is_amending"), IsRescinding: p.GetBool("is_rescinding"), IsEnacting: p.GetBool("is_enacting"),
		GeoExtent: p.GetString("geo_extent"), GeoRegion: p.GetStringSlice("geo_region"), GeoDetail: p.GetString("geo_detail"),
		Role: p.GetStringSlice("role"), RoleGvt: p.GetStringSlice("role_gvt"), DutyType: p.GetStringSlice("duty_type"), POPIMAR: p.GetStringSlice("popimar"),
		DutyHolder: models.HolderSet(p.GetStringSlice("duty_holder")), RightsHolder: models.HolderSet(p.GetStringSlice("rights_holder")),
		ResponsibilityHolder: models.HolderSet(p.GetStringSlice("responsibility_holder")), PowerHolder: models.HolderSet(p.GetStringSlice("power_holder")),
		Purpose: p.GetString("purpose"), TaxaTextSource: p.GetString("taxa_text_source"), TaxaTextLength: p.GetInt("taxa_text_length"),
		MDDescription: p.GetString("md_description"), MDModified: p.GetString("md_modified"), MDSubjects: p.GetStringSlice("md_subjects"),
		SICode: p.GetStringSlice("si_code"), MDTotalParas: p.GetInt("md_total_paras"), MDImages: p.GetInt("md_images"),
		MDDate: p.GetString("md_date"), MDEnactmentDate: p.GetString("md_enactment_date"), MDMadeDate: p.GetString("md_made_date"),
		MDComingIntoForce: p.GetString("md_coming_into_force"), MDRestrictExtent: p.GetString("md_restrict_extent"),
		MDRestrictStartDate: p.GetString("md_restrict_start_date"), PDFHref: p.GetString("pdf_href"),
	}

	if fn, ok := p.Get("function").(map[string]bool); ok {
		row.Function = fn
	}
	if meta, ok := p.Get("enacted_by_meta").(map[string]models.EnactingMeta); ok {
		row.EnactedByMeta = meta
	}
	if stats, ok := p.Get("amending_stats").(map[string]models.AmendmentStats); ok {
		row.AmendingStats = stats
	}
	if stats, ok := p.Get("amended_by_stats").(map[string]models.AmendmentStats); ok {
		row.AmendedByStats = stats
	}
	if duties, ok := p.Get("duties").(models.TaxaEntries); ok {
		row.Duties = duties
	}
	if rights, ok := p.Get("rights").(models.TaxaEntries); ok {
		row.Rights = rights
	}
	if responsibilities, ok := p.Get("responsibilities").(models.TaxaEntries); ok {
		row.Responsibilities = responsibilities
	}
	if powers, ok := p.Get("powers").(models.TaxaEntries); ok {
		row.Powers = powers
	}
	if detail, ok := p.Get("live_conflict_detail").(models.ConflictDetail); ok {
		row.LiveConflictInfo = &detail
	}

	return row
}
