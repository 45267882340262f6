package grid

import (
	"slices"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
)

// DashboardPage is the page that always exists in a catalog.
const DashboardPage = "dashboard"

// WarehousePage is the page served by single-page local stores.
const WarehousePage = "warehouse"

// Page describes a dashboard page and the widgets it hosts.
type Page struct {
	ID      string   `json:"id" toml:"id"`
	Name    string   `json:"name" toml:"name"`
	Path    string   `json:"path" toml:"path"`
	Widgets []string `json:"widgets" toml:"widgets"`
}

// WidgetInfo is a catalog entry for a widget that can be placed on a page.
type WidgetInfo struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Category    string `json:"category" toml:"category"`
	Description string `json:"description,omitempty" toml:"description"`
}

// Catalog holds the known pages, the widget catalogue and the hard-coded
// default layouts used to materialise and reset layouts.
type Catalog struct {
	Pages    []Page
	Widgets  []WidgetInfo
	Defaults map[string]LayoutSet
}

// Page returns the page with the given id.
func (c Catalog) Page(id string) (Page, bool) {
	i := slices.IndexFunc(c.Pages, func(p Page) bool { return p.ID == id })
	if i < 0 {
		return Page{}, false
	}
	return c.Pages[i], true
}

// DefaultSet returns a copy of the default layouts for a page.
func (c Catalog) DefaultSet(pageID string) (LayoutSet, bool) {
	s, ok := c.Defaults[pageID]
	if !ok {
		return LayoutSet{}, false
	}
	return s.Clone(), true
}

// Default returns a copy of the default layout for a page and breakpoint.
func (c Catalog) Default(pageID string, b breakpoint.Breakpoint) (Layout, bool) {
	s, ok := c.Defaults[pageID]
	if !ok {
		return Layout{}, false
	}
	return s.Get(b)
}

// Unused returns the catalog widgets that are not placed in l.
func (c Catalog) Unused(l Layout) []WidgetInfo {
	var out []WidgetInfo
	for _, w := range c.Widgets {
		if l.Index(w.ID) < 0 {
			out = append(out, w)
		}
	}
	return out
}

// Merge overlays other onto c: pages and widgets with the same id are
// replaced, new ones appended, and default layouts replaced per page.
func (c *Catalog) Merge(other Catalog) {
	for _, p := range other.Pages {
		if i := slices.IndexFunc(c.Pages, func(q Page) bool { return q.ID == p.ID }); i >= 0 {
			c.Pages[i] = p
		} else {
			c.Pages = append(c.Pages, p)
		}
	}
	for _, w := range other.Widgets {
		if i := slices.IndexFunc(c.Widgets, func(q WidgetInfo) bool { return q.ID == w.ID }); i >= 0 {
			c.Widgets[i] = w
		} else {
			c.Widgets = append(c.Widgets, w)
		}
	}
	if c.Defaults == nil {
		c.Defaults = make(map[string]LayoutSet)
	}
	for id, s := range other.Defaults {
		c.Defaults[id] = s.Clone()
	}
}

// DefaultCatalog returns the built-in pages, widgets and default layouts.
// Each call returns fresh values that the caller may modify.
func DefaultCatalog() Catalog {
	return Catalog{
		Pages: []Page{
			{ID: DashboardPage, Name: "Dashboard", Path: "/", Widgets: []string{"inventory-overview", "order-summary", "staff-performance"}},
			{ID: "staff-schedule", Name: "Staff schedule", Path: "/staff/schedule", Widgets: []string{"staff-schedule"}},
			{ID: "staff-performance", Name: "Staff performance", Path: "/staff/performance", Widgets: []string{"staff-performance"}},
			{ID: "inventory", Name: "Inventory", Path: "/inventory", Widgets: []string{"inventory-overview"}},
			{ID: "orders", Name: "Orders", Path: "/orders", Widgets: []string{"order-summary"}},
			{ID: WarehousePage, Name: "Warehouse", Path: "/warehouse", Widgets: []string{"stats", "alerts", "analytics", "kpi", "activities", "schedule", "performance"}},
		},
		Widgets: []WidgetInfo{
			{ID: "staff-performance", Name: "Staff performance", Category: "staff", Description: "Track and rate staff performance"},
			{ID: "staff-schedule", Name: "Staff schedule", Category: "staff", Description: "Shift planning and schedules"},
			{ID: "inventory-overview", Name: "Inventory overview", Category: "inventory", Description: "Stock levels at a glance"},
			{ID: "order-summary", Name: "Order summary", Category: "orders", Description: "Live order statistics"},
			{ID: "stats", Name: "Stats", Category: "warehouse"},
			{ID: "alerts", Name: "Alerts", Category: "warehouse"},
			{ID: "analytics", Name: "Analytics", Category: "warehouse"},
			{ID: "kpi", Name: "KPI", Category: "warehouse"},
			{ID: "activities", Name: "Recent activities", Category: "warehouse"},
			{ID: "schedule", Name: "Schedule", Category: "warehouse"},
			{ID: "performance", Name: "Performance", Category: "warehouse"},
		},
		Defaults: map[string]LayoutSet{
			DashboardPage: {
				Mobile: Layout{Columns: 1, Widgets: []Widget{
					{ID: "inventory-overview", Row: 0, Col: 0, Width: 1, Height: 2, Visible: true},
					{ID: "order-summary", Row: 2, Col: 0, Width: 1, Height: 2, Visible: true},
					{ID: "staff-performance", Row: 4, Col: 0, Width: 1, Height: 2, Visible: true},
				}},
				Tablet: Layout{Columns: 2, Widgets: []Widget{
					{ID: "inventory-overview", Row: 0, Col: 0, Width: 2, Height: 2, Visible: true},
					{ID: "order-summary", Row: 2, Col: 0, Width: 2, Height: 2, Visible: true},
					{ID: "staff-performance", Row: 4, Col: 0, Width: 2, Height: 2, Visible: true},
				}},
				Desktop: Layout{Columns: 4, Widgets: []Widget{
					{ID: "inventory-overview", Row: 0, Col: 0, Width: 2, Height: 2, Visible: true},
					{ID: "order-summary", Row: 0, Col: 2, Width: 2, Height: 2, Visible: true},
					{ID: "staff-performance", Row: 2, Col: 0, Width: 4, Height: 2, Visible: true},
				}},
			},
			"staff-schedule":    singleWidgetSet("staff-schedule"),
			"staff-performance": singleWidgetSet("staff-performance"),
			"inventory":         singleWidgetSet("inventory-overview"),
			"orders":            singleWidgetSet("order-summary"),
			WarehousePage: {
				Mobile: Layout{Columns: 1, Widgets: []Widget{
					{ID: "stats", Row: 0, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "alerts", Row: 1, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "analytics", Row: 2, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "kpi", Row: 3, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "activities", Row: 4, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "schedule", Row: 5, Col: 0, Width: 1, Height: 2, Visible: false},
					{ID: "performance", Row: 7, Col: 0, Width: 1, Height: 1, Visible: false},
				}},
				Tablet: Layout{Columns: 2, Widgets: []Widget{
					{ID: "stats", Row: 0, Col: 0, Width: 2, Height: 1, Visible: true},
					{ID: "alerts", Row: 1, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "analytics", Row: 1, Col: 1, Width: 1, Height: 1, Visible: true},
					{ID: "kpi", Row: 2, Col: 0, Width: 1, Height: 1, Visible: true},
					{ID: "activities", Row: 2, Col: 1, Width: 1, Height: 1, Visible: true},
					{ID: "schedule", Row: 3, Col: 0, Width: 2, Height: 2, Visible: true},
					{ID: "performance", Row: 5, Col: 0, Width: 2, Height: 1, Visible: true},
				}},
				Desktop: Layout{Columns: 4, Widgets: []Widget{
					{ID: "stats", Row: 0, Col: 0, Width: 4, Height: 1, Visible: true},
					{ID: "schedule", Row: 1, Col: 0, Width: 2, Height: 3, Visible: true},
					{ID: "analytics", Row: 1, Col: 2, Width: 1, Height: 1, Visible: true},
					{ID: "kpi", Row: 1, Col: 3, Width: 1, Height: 1, Visible: true},
					{ID: "alerts", Row: 2, Col: 2, Width: 2, Height: 1, Visible: true},
					{ID: "activities", Row: 3, Col: 2, Width: 1, Height: 1, Visible: true},
					{ID: "performance", Row: 3, Col: 3, Width: 1, Height: 1, Visible: true},
				}},
			},
		},
	}
}

// singleWidgetSet builds the full-width, four-row default used by pages
// that host a single widget.
func singleWidgetSet(id string) LayoutSet {
	var s LayoutSet
	for _, b := range breakpoint.All {
		s.Set(b, Layout{Columns: b.Columns(), Widgets: []Widget{
			{ID: id, Row: 0, Col: 0, Width: b.Columns(), Height: 4, Visible: true},
		}})
	}
	return s
}
