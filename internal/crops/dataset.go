package crops

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/i474232898/agroclima/internal/analysis"
	"github.com/i474232898/agroclima/internal/common"
)

var (
	// ErrCropNotFound is returned when the dataset has no rows for a crop.
	ErrCropNotFound = errors.New("crop not found")
	// ErrDatasetUnavailable is returned when the CSV file is missing or unreadable.
	ErrDatasetUnavailable = errors.New("crop dataset unavailable")
)

const (
	colCrop       = "Nombre"
	colDay        = "Día"
	colIrrigation = "Necesidad_Riego"
	colStatus     = "Estado_Cultivo"
	colInsects    = "Riesgo_Insectos"
	colFungi      = "Riesgo_Hongos"
	colBacteria   = "Riesgo_Bacterias"
	colVirus      = "Riesgo_Virus"
	colWeeds      = "Riesgo_Malezas"
)

var requiredColumns = []string{
	colCrop, colDay, colIrrigation, colStatus,
	colInsects, colFungi, colBacteria, colVirus, colWeeds,
}

// Risks holds one value per pest type.
type Risks[T int | float64] struct {
	Insects  T `json:"insects"`
	Fungi    T `json:"fungi"`
	Bacteria T `json:"bacteria"`
	Virus    T `json:"virus"`
	Weeds    T `json:"weeds"`
}

// Record is one row of the dataset.
type Record struct {
	Crop           string         `json:"crop"`
	Day            string         `json:"day"`
	IrrigationNeed float64        `json:"irrigationNeed"`
	Status         string         `json:"status"`
	Risks          Risks[float64] `json:"risks"`
}

type IrrigationNeed struct {
	Day  string  `json:"day"`
	Need float64 `json:"need"`
}

type Status struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
	Weekly []Record       `json:"weekly"`
}

type PestRisk struct {
	Risks Risks[int]         `json:"risks"`
	Level analysis.RiskLevel `json:"level"`
}

type DailySaving struct {
	Day    string  `json:"day"`
	Saving float64 `json:"saving"`
}

type WaterSavings struct {
	Daily   []DailySaving `json:"daily"`
	Average float64       `json:"average"`
}

// Dataset answers crop questions from a CSV file. The file is read on every
// call so edits are picked up without a restart.
type Dataset struct {
	path   string
	logger *log.Logger
}

func NewDataset(path string, logger *log.Logger) *Dataset {
	if logger == nil {
		logger = log.Default()
	}
	return &Dataset{path: path, logger: logger}
}

// Crops lists the distinct crop names in file order.
func (d *Dataset) Crops() ([]string, error) {
	records, err := d.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Crop]; ok {
			continue
		}
		seen[r.Crop] = struct{}{}
		names = append(names, r.Crop)
	}
	return names, nil
}

func (d *Dataset) IrrigationNeeds(crop string) ([]IrrigationNeed, error) {
	rows, err := d.rows(crop)
	if err != nil {
		return nil, err
	}
	out := make([]IrrigationNeed, 0, len(rows))
	for _, r := range rows {
		out = append(out, IrrigationNeed{Day: r.Day, Need: r.IrrigationNeed})
	}
	return out, nil
}

func (d *Dataset) Status(crop string) (*Status, error) {
	rows, err := d.rows(crop)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	return &Status{Counts: counts, Total: len(rows), Weekly: rows}, nil
}

// PestRisk averages each pest type over the crop's rows, rounding half to
// even, and grades the mean of those rounded values: <2.5 low, <3.5 medium.
func (d *Dataset) PestRisk(crop string) (*PestRisk, error) {
	rows, err := d.rows(crop)
	if err != nil {
		return nil, err
	}

	var sum Risks[float64]
	for _, r := range rows {
		sum.Insects += r.Risks.Insects
		sum.Fungi += r.Risks.Fungi
		sum.Bacteria += r.Risks.Bacteria
		sum.Virus += r.Risks.Virus
		sum.Weeds += r.Risks.Weeds
	}

	n := float64(len(rows))
	avg := Risks[int]{
		Insects:  int(math.RoundToEven(sum.Insects / n)),
		Fungi:    int(math.RoundToEven(sum.Fungi / n)),
		Bacteria: int(math.RoundToEven(sum.Bacteria / n)),
		Virus:    int(math.RoundToEven(sum.Virus / n)),
		Weeds:    int(math.RoundToEven(sum.Weeds / n)),
	}
	overall := float64(avg.Insects+avg.Fungi+avg.Bacteria+avg.Virus+avg.Weeds) / 5

	level := analysis.RiskHigh
	switch {
	case overall < 2.5:
		level = analysis.RiskLow
	case overall < 3.5:
		level = analysis.RiskMedium
	}
	return &PestRisk{Risks: avg, Level: level}, nil
}

// WaterSavings measures each day's need against the crop's peak need, in
// percent with one decimal. A zero peak yields zero savings.
func (d *Dataset) WaterSavings(crop string) (*WaterSavings, error) {
	rows, err := d.rows(crop)
	if err != nil {
		return nil, err
	}

	peak := rows[0].IrrigationNeed
	for _, r := range rows[1:] {
		peak = math.Max(peak, r.IrrigationNeed)
	}

	daily := make([]DailySaving, 0, len(rows))
	savings := make([]float64, 0, len(rows))
	for _, r := range rows {
		var s float64
		if peak != 0 {
			s = common.Round1((peak - r.IrrigationNeed) / peak * 100)
		}
		daily = append(daily, DailySaving{Day: r.Day, Saving: s})
		savings = append(savings, s)
	}

	return &WaterSavings{Daily: daily, Average: common.Round1(common.Mean(savings))}, nil
}

func (d *Dataset) rows(crop string) ([]Record, error) {
	records, err := d.load()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range records {
		if r.Crop == crop {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCropNotFound, crop)
	}
	return out, nil
}

func (d *Dataset) load() ([]Record, error) {
	f, err := os.Open(d.path)
	if err != nil {
		d.logger.Printf("ERROR: crop dataset: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrDatasetUnavailable, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrDatasetUnavailable, name)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
		}
		rec, err := parseRecord(cols, fields)
		if err != nil {
			d.logger.Printf("WARN: crop dataset line %d skipped: %v", line, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(cols map[string]int, fields []string) (Record, error) {
	get := func(name string) string {
		i := cols[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	num := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}

	rec := Record{Crop: get(colCrop), Day: get(colDay), Status: get(colStatus)}
	if rec.Crop == "" {
		return Record{}, fmt.Errorf("empty %s", colCrop)
	}

	var err error
	if rec.IrrigationNeed, err = num(colIrrigation); err != nil {
		return Record{}, err
	}
	for name, dst := range map[string]*float64{
		colInsects:  &rec.Risks.Insects,
		colFungi:    &rec.Risks.Fungi,
		colBacteria: &rec.Risks.Bacteria,
		colVirus:    &rec.Risks.Virus,
		colWeeds:    &rec.Risks.Weeds,
	} {
		if *dst, err = num(name); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}
