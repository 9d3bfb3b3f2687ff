package custody

import "Satellite/internal/program"

// Custody program errors. Codes are part of the program's interface.
var (
	ErrMetadataMismatch               = program.Custom(0, "metadata differs from the mint provided")
	ErrWrongEdition                   = program.Custom(1, "wrong edition kind or master edition already used")
	ErrSatelliteMustListAmongCreators = program.Custom(2, "custody address must be listed among the creators")
	ErrOngoingSales                   = program.Custom(3, "sales not ended for the master edition")
	ErrNotOwned                       = program.Custom(4, "master edition not owned")
)
