package coupling

// Thermal exposes the atmosphere's thermal pressure anomaly as an additive
// grid. It is informational: the anomaly is already part of the pressure
// field, so nothing applies it a second time.
type Thermal struct{}

func (Thermal) Name() string { return "thermal" }

func (t Thermal) Compute(in Inputs) *EffectGrid {
	w, h := in.size()
	g := NewEffectGrid(t.Name(), Additive, w, h)
	if in.Atmos.ThermalAnomaly.IsZero() {
		return g
	}
	for i := 0; i < w*h; i++ {
		g.Add(i, in.Atmos.ThermalAnomaly.AtIndex(i))
	}
	return g
}
