// Command wavesd is a headless music player daemon.
package main

func main() {
	Execute()
}
