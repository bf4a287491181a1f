// Package importer loads requirements and maintenance tasks for a vessel
// from an xlsx workbook.
//
// The workbook may have an "Inventory" sheet, a "Maintenance" sheet, or
// both. The first row of each sheet is a header; columns are matched by
// name, case-insensitively, and may appear in any order.
//
//	Inventory:   Item, Group, Required, Category, Critical, Auto consume,
//	             Consume per hour, Current quantity, Notes
//	Maintenance: Name, Cadence, Interval days, Interval hours, Due date,
//	             Critical, Description
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Sheet names.
const (
	SheetInventory   = "Inventory"
	SheetMaintenance = "Maintenance"
)

// Result counts what an import created.
type Result struct {
	Groups       int
	Requirements int
	Tasks        int
}

type requirementRow struct {
	line  int
	group string
	opts  inventory.CreateOpts
}

type taskRow struct {
	line int
	opts maintenance.CreateOpts
}

// ImportFile opens path and imports it. See Import.
func ImportFile(db *gorm.DB, vesselID, path, actor string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperr.Validation("importer: open %s: %v", path, err)
	}
	defer f.Close()
	return importWorkbook(db, vesselID, f, actor)
}

// Import reads a workbook and creates its rows on the vessel. Every row is
// validated before anything is written, and all rows are written in one
// transaction: either the whole workbook is imported or nothing is.
// Groups named in the Inventory sheet are created when the vessel has no
// group of that name.
func Import(db *gorm.DB, vesselID string, r io.Reader, actor string) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("importer: read workbook: %v", err)
	}
	defer f.Close()
	return importWorkbook(db, vesselID, f, actor)
}

func importWorkbook(db *gorm.DB, vesselID string, f *excelize.File, actor string) (*Result, error) {
	invRows, invFound, err := readSheet(f, SheetInventory)
	if err != nil {
		return nil, err
	}
	taskRows, taskFound, err := readSheet(f, SheetMaintenance)
	if err != nil {
		return nil, err
	}
	if !invFound && !taskFound {
		return nil, apperr.Validation("importer: workbook has neither an %q nor a %q sheet", SheetInventory, SheetMaintenance)
	}

	var problems []string
	reqs, errs := parseRequirements(invRows, vesselID, actor)
	problems = append(problems, errs...)
	tasks, errs := parseTasks(taskRows, vesselID)
	problems = append(problems, errs...)
	if len(problems) > 0 {
		return nil, apperr.Validation("importer: %s", strings.Join(problems, "; "))
	}

	var res Result
	err = db.Transaction(func(tx *gorm.DB) error {
		groups, err := existingGroups(tx, vesselID)
		if err != nil {
			return err
		}
		for _, row := range reqs {
			if row.group != "" {
				id, ok := groups[strings.ToLower(row.group)]
				if !ok {
					g, err := inventory.CreateGroup(tx, vesselID, inventory.GroupOpts{Name: row.group})
					if err != nil {
						return rowError(SheetInventory, row.line, err)
					}
					id = g.ID
					groups[strings.ToLower(row.group)] = id
					res.Groups++
				}
				row.opts.ParentGroupID = &id
			}
			if _, err := inventory.Create(tx, row.opts); err != nil {
				return rowError(SheetInventory, row.line, err)
			}
			res.Requirements++
		}
		for _, row := range tasks {
			if _, err := maintenance.Create(tx, row.opts); err != nil {
				return rowError(SheetMaintenance, row.line, err)
			}
			res.Tasks++
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "importer: import into vessel %s", vesselID)
	}
	return &res, nil
}

// readSheet returns the data rows of a sheet keyed by lower-cased header.
// found is false when the workbook has no such sheet.
func readSheet(f *excelize.File, sheet string) (rows []sheetRow, found bool, err error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, false, nil
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, true, apperr.Validation("importer: read sheet %s: %v", sheet, err)
	}
	if len(all) == 0 {
		return nil, true, nil
	}
	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = normalize(h)
	}
	for i, cells := range all[1:] {
		row := sheetRow{line: i + 2, cells: map[string]string{}}
		blank := true
		for j, v := range cells {
			if j >= len(header) || header[j] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			row.cells[header[j]] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, true, nil
}

type sheetRow struct {
	line  int
	cells map[string]string
}

func (r sheetRow) get(col string) string { return r.cells[col] }

func normalize(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

func parseRequirements(rows []sheetRow, vesselID, actor string) ([]requirementRow, []string) {
	var out []requirementRow
	var problems []string
	for _, row := range rows {
		var errs []string
		opts := inventory.CreateOpts{
			VesselID: vesselID,
			ItemName: row.get("item"),
			Category: row.get("category"),
			Notes:    row.get("notes"),
			Actor:    actor,
		}
		if opts.ItemName == "" {
			errs = append(errs, "item is required")
		}
		if v := row.get("required"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errs = append(errs, fmt.Sprintf("required %q is not a whole number >= 0", v))
			}
			opts.RequiredQuantity = &n
		}
		var err error
		if opts.Critical, err = parseBool(row.get("critical")); err != nil {
			errs = append(errs, err.Error())
		}
		if opts.AutoConsumeEnabled, err = parseBool(row.get("auto consume")); err != nil {
			errs = append(errs, err.Error())
		}
		if opts.ConsumePerHour, err = parseDecimal(row.get("consume per hour")); err != nil {
			errs = append(errs, err.Error())
		}
		if opts.CurrentQuantity, err = parseDecimal(row.get("current quantity")); err != nil {
			errs = append(errs, err.Error())
		}
		if opts.ConsumePerHour != nil && opts.ConsumePerHour.IsNegative() {
			errs = append(errs, "consume per hour must be >= 0")
		}
		if opts.CurrentQuantity != nil && opts.CurrentQuantity.IsNegative() {
			errs = append(errs, "current quantity must be >= 0")
		}
		if len(errs) > 0 {
			problems = append(problems, fmt.Sprintf("%s row %d: %s", SheetInventory, row.line, strings.Join(errs, ", ")))
			continue
		}
		out = append(out, requirementRow{line: row.line, group: row.get("group"), opts: opts})
	}
	return out, problems
}

func parseTasks(rows []sheetRow, vesselID string) ([]taskRow, []string) {
	var out []taskRow
	var problems []string
	for _, row := range rows {
		var errs []string
		opts := maintenance.CreateOpts{
			VesselID:    vesselID,
			Name:        row.get("name"),
			Description: row.get("description"),
			CadenceType: models.CadenceType(strings.ToLower(strings.ReplaceAll(row.get("cadence"), " ", "_"))),
		}
		if opts.Name == "" {
			errs = append(errs, "name is required")
		}
		if !opts.CadenceType.Valid() {
			errs = append(errs, fmt.Sprintf("cadence %q must be interval or specific_date", row.get("cadence")))
		}
		if v := row.get("interval days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				errs = append(errs, fmt.Sprintf("interval days %q is not a whole number >= 1", v))
			}
			opts.IntervalDays = &n
		}
		var err error
		if opts.IntervalHours, err = parseDecimal(row.get("interval hours")); err != nil {
			errs = append(errs, err.Error())
		} else if opts.IntervalHours != nil && !opts.IntervalHours.IsPositive() {
			errs = append(errs, "interval hours must be greater than zero")
		}
		if opts.DueDate, err = parseDate(row.get("due date")); err != nil {
			errs = append(errs, err.Error())
		}
		if opts.Critical, err = parseBool(row.get("critical")); err != nil {
			errs = append(errs, err.Error())
		}
		switch opts.CadenceType {
		case models.CadenceInterval:
			if opts.IntervalDays == nil {
				errs = append(errs, "interval days is required for interval cadence")
			}
		case models.CadenceSpecificDate:
			if opts.DueDate == nil {
				errs = append(errs, "due date is required for specific_date cadence")
			}
		}
		if len(errs) > 0 {
			problems = append(problems, fmt.Sprintf("%s row %d: %s", SheetMaintenance, row.line, strings.Join(errs, ", ")))
			continue
		}
		out = append(out, taskRow{line: row.line, opts: opts})
	}
	return out, problems
}

func existingGroups(tx *gorm.DB, vesselID string) (map[string]string, error) {
	groups, err := inventory.ListGroups(tx, vesselID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(groups))
	for _, g := range groups {
		byName[strings.ToLower(g.Name)] = g.ID
	}
	return byName, nil
}

// rowError prefixes a domain error with its sheet row, keeping its kind.
func rowError(sheet string, line int, err error) error {
	var kinded *apperr.Error
	if errors.As(err, &kinded) {
		return &apperr.Error{Kind: kinded.Kind, Msg: fmt.Sprintf("%s row %d: %s", sheet, line, kinded.Msg), Err: kinded.Err}
	}
	return apperr.Storage(err, "%s row %d", sheet, line)
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "no", "n", "false", "0":
		return false, nil
	case "yes", "y", "true", "1", "x":
		return true, nil
	}
	return false, fmt.Errorf("%q is not yes or no", v)
}

func parseDecimal(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", v)
	}
	return &d, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01-02-06", "1/2/06", "1/2/2006"}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%q is not a date (want YYYY-MM-DD)", v)
}
