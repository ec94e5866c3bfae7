package inspection

import (
	"errors"
	"fmt"
	"strings"
)

// Equipment enumerates the equipment families that have a download endpoint.
type Equipment int

const (
	Forklift Equipment = iota
	MobileCrane
	GantryCrane
	OverheadCrane
	Gondola
	Elevator
	Eskalator
	InstalasiPetir
	InstalasiListrik
	ProteksiKebakaran
	PUBT
	MotorDiesel
	Mesin
	equipmentCount
)

// DocKind enumerates the document kinds served per equipment family.
type DocKind int

const (
	Laporan DocKind = iota
	BeritaAcara
	docKindCount
)

var equipmentPaths = [equipmentCount]string{
	Forklift:          "/paa/forklift",
	MobileCrane:       "/paa/mobileCrane",
	GantryCrane:       "/paa/gantryCrane",
	OverheadCrane:     "/paa/overHeadCrane",
	Gondola:           "/paa/gondola",
	Elevator:          "/elevatorEskalator/elevator",
	Eskalator:         "/elevatorEskalator/eskalator",
	InstalasiPetir:    "/petirListrik/instalasiPetir",
	InstalasiListrik:  "/petirListrik/instalasiListrik",
	ProteksiKebakaran: "/proteksiKebakaran",
	PUBT:              "/pubt",
	MotorDiesel:       "/ptp/motorDiesel",
	Mesin:             "/ptp/mesin",
}

var equipmentNames = [equipmentCount]string{
	Forklift:          "forklift",
	MobileCrane:       "mobile-crane",
	GantryCrane:       "gantry-crane",
	OverheadCrane:     "overhead-crane",
	Gondola:           "gondola",
	Elevator:          "elevator",
	Eskalator:         "eskalator",
	InstalasiPetir:    "instalasi-petir",
	InstalasiListrik:  "instalasi-listrik",
	ProteksiKebakaran: "proteksi-kebakaran",
	PUBT:              "pubt",
	MotorDiesel:       "motor-diesel",
	Mesin:             "mesin",
}

var docKindSegments = [docKindCount]string{
	Laporan:     "laporan",
	BeritaAcara: "bap",
}

// equipmentAliases maps lowercased subInspectionType values to a family.
// Several spellings may point at one family.
var equipmentAliases = map[string]Equipment{
	"forklift":                     Forklift,
	"mobile crane":                 MobileCrane,
	"gantry crane":                 GantryCrane,
	"overhead crane":               OverheadCrane,
	"gondola":                      Gondola,
	"elevator":                     Elevator,
	"eskalator":                    Eskalator,
	"instalasi penyalur petir":     InstalasiPetir,
	"instalasi petir":              InstalasiPetir,
	"instalasi listrik":            InstalasiListrik,
	"instalasi proteksi kebakaran": ProteksiKebakaran,
	"pubt":                         PUBT,
	"pesawat uap dan bejana tekan": PUBT,
	"motor diesel":                 MotorDiesel,
	"mesin":                        Mesin,
}

// docKindAliases maps lowercased documentType values to a kind.
var docKindAliases = map[string]DocKind{
	"laporan":                                Laporan,
	"berita acara dan pemeriksaan pengujian": BeritaAcara,
}

// routeTable is keyed by RouteKey and built from the alias tables.
var routeTable = buildRouteTable()

func buildRouteTable() map[string]Route {
	table := make(map[string]Route, len(equipmentAliases)*len(docKindAliases))
	for sub, equipment := range equipmentAliases {
		for doc, kind := range docKindAliases {
			table[sub+"-"+doc] = Route{Equipment: equipment, Kind: kind}
		}
	}
	return table
}

// Route identifies one remote document download endpoint.
type Route struct {
	Equipment Equipment
	Kind      DocKind
}

// Path returns the endpoint prefix; the record id is appended by the caller.
func (r Route) Path() string {
	return equipmentPaths[r.Equipment] + "/" + docKindSegments[r.Kind] + "/download"
}

// String returns a stable label such as "elevator-laporan".
func (r Route) String() string {
	return equipmentNames[r.Equipment] + "-" + docKindSegments[r.Kind]
}

// ErrRouteNotFound matches every RouteNotFoundError.
var ErrRouteNotFound = errors.New("inspection: download route not found")

// RouteNotFoundError is returned when no endpoint serves the given pair.
type RouteNotFoundError struct {
	SubInspectionType string
	DocumentType      string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("Download handler not found for: %s (%s)", e.SubInspectionType, e.DocumentType)
}

// Is reports whether target is ErrRouteNotFound.
func (e *RouteNotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

// RouteKey builds the lookup key "{subInspectionType}-{documentType}" in lower case.
func RouteKey(subInspectionType, documentType string) string {
	return strings.ToLower(subInspectionType) + "-" + strings.ToLower(documentType)
}

// Resolve maps an inspection sub type and document type to a download route.
func Resolve(subInspectionType, documentType string) (Route, error) {
	route, ok := routeTable[RouteKey(subInspectionType, documentType)]
	if !ok {
		return Route{}, &RouteNotFoundError{SubInspectionType: subInspectionType, DocumentType: documentType}
	}
	return route, nil
}

// Routes lists every distinct route, one per equipment and document kind.
func Routes() []Route {
	routes := make([]Route, 0, int(equipmentCount)*int(docKindCount))
	for e := Equipment(0); e < equipmentCount; e++ {
		for k := DocKind(0); k < docKindCount; k++ {
			routes = append(routes, Route{Equipment: e, Kind: k})
		}
	}
	return routes
}
