package taleweave

// genres is the static catalog. Order matters: the UI lists them as-is.
var genres = []GenreProfile{
	{
		ID:             "noir-mystery",
		DisplayName:    "Noir Mystery",
		Description:    "Rain-slicked streets, a case nobody wants solved, and a detective who can't let it go.",
		ArtStylePrompt: "Black and white, high contrast ink style, heavy shadows, 1940s film noir atmosphere.",
		AccentColor:    "#b0b4ba",
	},
	{
		ID:             "high-fantasy",
		DisplayName:    "High Fantasy",
		Description:    "Ancient kingdoms, old magic, and a quest that will decide the fate of the realm.",
		ArtStylePrompt: "Painterly high fantasy concept art, rich colors, dramatic lighting, epic scale.",
		AccentColor:    "#c9a227",
	},
	{
		ID:             "space-opera",
		DisplayName:    "Space Opera",
		Description:    "Failing empires, smugglers' routes, and a ship that is one jump ahead of trouble.",
		ArtStylePrompt: "Retro-futuristic space opera illustration, vivid nebulae, chrome and neon, cinematic composition.",
		AccentColor:    "#4f8fe8",
	},
	{
		ID:             "gothic-horror",
		DisplayName:    "Gothic Horror",
		Description:    "A crumbling estate, a family secret, and something in the walls that remembers.",
		ArtStylePrompt: "Dark gothic oil painting style, muted palette, candlelight, creeping fog, Victorian dread.",
		AccentColor:    "#7a2e2e",
	},
	{
		ID:             "wild-west",
		DisplayName:    "Wild West",
		Description:    "A dusty frontier town, a name with a price on it, and one last ride at sundown.",
		ArtStylePrompt: "Western frontier art, warm sepia tones, dust and long shadows, wide desert vistas.",
		AccentColor:    "#b5651d",
	},
	{
		ID:             "cyberpunk",
		DisplayName:    "Cyberpunk",
		Description:    "Megacorp towers, black-market implants, and a job that pays too well to be clean.",
		ArtStylePrompt: "Cyberpunk digital art, neon-drenched night city, rain, holographic signage, gritty detail.",
		AccentColor:    "#e84fd0",
	},
}

// Genres returns the catalog. Callers get a copy so the table stays
// immutable.
func Genres() []GenreProfile {
	out := make([]GenreProfile, len(genres))
	copy(out, genres)
	return out
}

// GenreByID finds a genre profile by its identifier.
func GenreByID(id string) (GenreProfile, bool) {
	for _, g := range genres {
		if g.ID == id {
			return g, true
		}
	}
	return GenreProfile{}, false
}
