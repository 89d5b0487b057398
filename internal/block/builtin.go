package block

func init() {
	Default.MustRegister(Gain{})
	Default.MustRegister(LeadLag{})
	Default.MustRegister(SOS{})
	Default.MustRegister(RealPoleZero{})
}
