// geo_parser builds the geodb snapshot file from the MaxMind CSV
// dumps and the catalogue database.
package main

import "github.com/ggadnet/geodb/internal/cmd"

func main() {
	cmd.Main()
}
