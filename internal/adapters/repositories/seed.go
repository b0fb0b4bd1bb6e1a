package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"waste-dispatch-service/internal/domain"
)

// Seed is the reference data (and optionally pre-existing trips and
// maintenance) loaded into a ledger. It is the JSON seed file format.
type Seed struct {
	VehicleTypes []VehicleTypeSeed `json:"vehicle_types"`
	Routes       []RouteSeed       `json:"routes"`
	Vehicles     []VehicleSeed     `json:"vehicles"`
	Operators    []OperatorSeed    `json:"operators"`
	Sites        []SiteSeed        `json:"sites"`
	Trips        []TripSeed        `json:"trips"`
	Maintenance  []MaintenanceSeed `json:"maintenance"`
}

type VehicleTypeSeed struct {
	VehicleType   string `json:"vehicle_type"`
	WasteCategory string `json:"waste_category"`
}

type RouteSeed struct {
	RouteID       int     `json:"route_id"`
	WasteCategory string  `json:"waste_category"`
	LengthKm      float64 `json:"length_km"`
}

type VehicleSeed struct {
	VehicleID   int    `json:"vehicle_id"`
	VehicleType string `json:"vehicle_type"`
	Capacity    int    `json:"capacity"`
}

type OperatorSeed struct {
	OperatorID    int      `json:"operator_id"`
	Name          string   `json:"name"`
	HireDate      string   `json:"hire_date"`
	Drives        []string `json:"drives"`
	TechnicianFor []string `json:"technician_for"`
}

type SiteSeed struct {
	SiteID        int    `json:"site_id"`
	WasteCategory string `json:"waste_category"`
}

type TripSeed struct {
	RouteID     int       `json:"route_id"`
	VehicleID   int       `json:"vehicle_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Volume      *float64  `json:"volume"`
	OperatorIDs [2]int    `json:"operator_ids"`
	SiteID      int       `json:"site_id"`
}

type MaintenanceSeed struct {
	VehicleID    int    `json:"vehicle_id"`
	TechnicianID int    `json:"technician_id"`
	Date         string `json:"date"`
}

// catalog is a validated, domain-typed view of a Seed.
type catalog struct {
	vehicleTypes map[string]string
	routes       []domain.Route
	vehicles     []domain.Vehicle
	operators    []domain.Operator
	sites        []domain.Site
	trips        []domain.Assignment
	maintenance  []domain.MaintenanceEvent
}

// LoadSeed reads a JSON seed file.
func LoadSeed(jsonPath string) (Seed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return Seed{}, fmt.Errorf("load seed: read %q: %w", jsonPath, err)
	}

	var seed Seed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return Seed{}, fmt.Errorf("load seed: parse json: %w", err)
	}
	return seed, nil
}

func (s Seed) build() (*catalog, error) {
	c := &catalog{vehicleTypes: make(map[string]string, len(s.VehicleTypes))}

	for i, vt := range s.VehicleTypes {
		name := strings.TrimSpace(vt.VehicleType)
		if name == "" || strings.TrimSpace(vt.WasteCategory) == "" {
			return nil, fmt.Errorf("seed: vehicle type at index %d: type and waste category are required", i)
		}
		c.vehicleTypes[name] = strings.TrimSpace(vt.WasteCategory)
	}

	for i, r := range s.Routes {
		if r.RouteID <= 0 || r.LengthKm < 0 {
			return nil, fmt.Errorf("seed: invalid route at index %d: id=%d length=%v", i, r.RouteID, r.LengthKm)
		}
		c.routes = append(c.routes, domain.Route{RouteID: r.RouteID, WasteCategory: r.WasteCategory, LengthKm: r.LengthKm})
	}

	for i, v := range s.Vehicles {
		category, ok := c.vehicleTypes[v.VehicleType]
		if !ok {
			return nil, fmt.Errorf("seed: vehicle at index %d: unknown vehicle type %q", i, v.VehicleType)
		}
		if v.VehicleID <= 0 {
			return nil, fmt.Errorf("seed: invalid vehicle id at index %d: %d", i, v.VehicleID)
		}
		c.vehicles = append(c.vehicles, domain.Vehicle{
			VehicleID:     v.VehicleID,
			VehicleType:   v.VehicleType,
			Capacity:      v.Capacity,
			WasteCategory: category,
		})
	}

	for i, o := range s.Operators {
		hired, err := domain.ParseDate(o.HireDate)
		if err != nil {
			return nil, fmt.Errorf("seed: operator at index %d: hire date: %w", i, err)
		}
		for _, t := range append(append([]string{}, o.Drives...), o.TechnicianFor...) {
			if _, ok := c.vehicleTypes[t]; !ok {
				return nil, fmt.Errorf("seed: operator %d: unknown vehicle type %q", o.OperatorID, t)
			}
		}
		c.operators = append(c.operators, domain.Operator{
			OperatorID:      o.OperatorID,
			Name:            strings.TrimSpace(o.Name),
			HireDate:        hired,
			DriveTypes:      append([]string(nil), o.Drives...),
			TechnicianTypes: append([]string(nil), o.TechnicianFor...),
		})
	}

	for _, st := range s.Sites {
		c.sites = append(c.sites, domain.Site{SiteID: st.SiteID, WasteCategory: st.WasteCategory})
	}

	for i, t := range s.Trips {
		if !t.End.After(t.Start) {
			return nil, fmt.Errorf("seed: trip at index %d: end must be after start", i)
		}
		a, err := domain.NewAssignment(t.RouteID, t.VehicleID, domain.Interval{Start: t.Start, End: t.End}, t.OperatorIDs[0], t.OperatorIDs[1], t.SiteID)
		if err != nil {
			return nil, fmt.Errorf("seed: trip at index %d: %w", i, err)
		}
		a.Volume = t.Volume
		c.trips = append(c.trips, a)
	}

	for i, m := range s.Maintenance {
		day, err := domain.ParseDate(m.Date)
		if err != nil {
			return nil, fmt.Errorf("seed: maintenance at index %d: date: %w", i, err)
		}
		c.maintenance = append(c.maintenance, domain.MaintenanceEvent{VehicleID: m.VehicleID, TechnicianID: m.TechnicianID, Date: day})
	}

	return c, nil
}
