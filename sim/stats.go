package sim

// Stats summarizes one snapshot of the field. Energies assume unit mass.
type Stats struct {
	KineticEnergy float32
	MeanSpeed     float32
	MaxSpeed      float32
	// MaxOverlap is the deepest interpenetration of any pair, 0 when none overlap.
	MaxOverlap float32
}

func (s *Simulation) Stats() Stats {
	var st Stats
	n := s.cfg.Count
	if n == 0 {
		return st
	}
	var total float32
	for i := 0; i < n; i++ {
		v := s.Velocity(i)
		speed := v.Len()
		total += speed
		st.KineticEnergy += 0.5 * v.Dot(v)
		st.MaxSpeed = max32(st.MaxSpeed, speed)
	}
	st.MeanSpeed = total / float32(n)

	for i := 0; i < n; i++ {
		pi := s.Position(i)
		for j := i + 1; j < n; j++ {
			d := s.Position(j).Sub(pi).Len()
			st.MaxOverlap = max32(st.MaxOverlap, s.Radius(i)+s.Radius(j)-d)
		}
	}
	return st
}
