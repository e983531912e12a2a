package synth

// Word banks for title synthesis. Kept lowercase; Synthesize capitalizes.
var (
	moodsPositive = []string{
		"golden", "radiant", "shining", "bright", "euphoric", "blissful",
		"glowing", "soaring", "sunlit", "electric", "joyful", "sparkling",
	}

	moodsMelancholic = []string{
		"fading", "lonely", "distant", "hollow", "wistful", "broken",
		"silent", "aching", "pale", "forgotten", "drowning", "grey",
	}

	moodsGeneral = []string{
		"endless", "hidden", "wandering", "restless", "tender", "wild",
		"quiet", "burning", "frozen", "floating", "shifting", "velvet",
	}

	times = []string{
		"midnight", "dawn", "dusk", "sunrise", "twilight", "afternoon",
		"november", "summer", "winter", "tomorrow", "yesterday", "3am",
	}

	places = []string{
		"city", "ocean", "highway", "rooftop", "garden", "desert",
		"horizon", "coastline", "boulevard", "skyline", "valley", "harbor",
	}

	activities = []string{
		"dreaming", "running", "falling", "waiting", "drifting", "breathing",
		"driving", "wandering", "sailing", "chasing", "sleeping", "remembering",
	}

	activitiesDance = []string{
		"dancing", "jumping", "moving", "spinning", "shaking", "bouncing",
	}

	instruments = []string{
		"piano", "guitar", "synth", "strings", "drums", "bass",
		"saxophone", "violin", "keys", "echoes", "chords", "melody",
	}

	genreWords = []string{
		"pop", "rock", "jazz", "soul", "funk", "disco", "house", "techno",
		"folk", "blues", "ambient", "lofi", "indie", "electro", "reggae",
		"punk", "metal", "country", "latin", "rnb", "hiphop", "trap",
	}

	descriptors = []string{
		"neon", "crystal", "static", "liquid", "paper", "glass",
		"cosmic", "analog", "digital", "faded", "vivid", "lucid",
	}

	weather = []string{
		"rain", "storm", "fog", "sunshine", "clouds", "thunder",
		"snowfall", "breeze", "haze", "lightning", "mist", "heatwave",
	}

	emotions = []string{
		"love", "hope", "longing", "desire", "wonder", "nostalgia",
		"courage", "sorrow", "peace", "fever", "gravity", "serenity",
	}

	fastWords = []string{
		"rush", "sprint", "blur", "velocity", "spark", "pulse",
	}

	slowWords = []string{
		"slow", "still", "weightless", "lazy", "gentle", "hushed",
	}
)
