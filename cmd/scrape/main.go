// Command scrape runs the feed pipelines from the command line.
package main

import "os"

func main() {
	os.Exit(execute())
}
