package main

import (
	"os"

	"horse.fit/aidesk/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
