package theme

import (
	"fmt"
)

// Banner returns the CLI banner.
func Banner() string {
	const cyan = "\033[36m"
	const blue = "\033[34m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		blue + "   __                    __        _\n" + reset +
		blue + "  / /__    _____ ___ ___/ /_ _  (_)__  ___ ____\n" + reset +
		cyan + " / __/ |/|/ / -_) -_) __/  ' \\/ / _ \\/ -_) __/\n" + reset +
		cyan + " \\__/|__,__/\\__/\\__/\\__/_/_/_/_/_//_/\\__/_/\n" + reset +
		yellow + "  ----------------------------------------------\n" + reset +
		"   collect, cache and mine tweets by keyword\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
