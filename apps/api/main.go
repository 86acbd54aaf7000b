package main

// TODO: move media storage behind an object store once the portal runs on more than one host.
func main() {
	startWithDig()
}
