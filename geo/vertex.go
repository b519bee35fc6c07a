package geo

// Vertex is a sampled surface point with its normal. Vertex instances are
// always shared by pointer: two Vertex values may hold identical Position
// coordinates yet remain distinct vertices. ID is assigned lazily by the OBJ
// and GLB exporters (zero means "not yet assigned") and otherwise unused by the
// triangulator or the carver.
type Vertex struct {
	Position Vec3
	Normal   Vec3
	ID       int
}
