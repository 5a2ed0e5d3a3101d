package pingboard

import "testing"

func TestPlaceholdersExpand(t *testing.T) {
	vars := Placeholders{
		ServerName:    "Lobby",
		ServerVersion: "1.21.90",
		APIVersion:    "1.2.0",
		OnlinePlayers: 3,
		MaxPlayers:    50,
	}
	cases := map[string]string{
		"PauseScreenPing":                    "PauseScreenPing",
		"{SERVER_NAME}":                      "Lobby",
		"{ONLINE_PLAYERS}/{MAX_PLAYERS}":     "3/50",
		"MC {SERVER_VERSION} v{API_VERSION}": "MC 1.21.90 v1.2.0",
		"{UNKNOWN}":                          "{UNKNOWN}",
	}
	for template, want := range cases {
		if got := vars.Expand(template); got != want {
			t.Fatalf("Expand(%q) = %q, want %q", template, got, want)
		}
	}
}

func TestColourise(t *testing.T) {
	cases := map[string]string{
		"plain":                  "plain",
		"&dPing":                 "§dPing",
		"&DPing":                 "§dPing",
		"&l&6Bold":               "§l§6Bold",
		"&zNot a code":           "&zNot a code",
		"Trailing &":             "Trailing &",
		"Tom & &7Jerry":          "Tom & §7Jerry",
		"<red>Ping</red>":        "§cPing§r",
		"&aR&amp;D <red>x</red>": "§aR§amp;D §cx§r",
		"Tom & <red>Jerry</red>": "Tom & §cJerry§r",
		"100% <red>up</red>":     "100% §cup§r",
	}
	for in, want := range cases {
		if got := Colourise(in); got != want {
			t.Fatalf("Colourise(%q) = %q, want %q", in, got, want)
		}
	}
}
