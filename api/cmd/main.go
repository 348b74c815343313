package main

import (
	api "Tourney/api"
)

func main() {
	api.Run()
}
