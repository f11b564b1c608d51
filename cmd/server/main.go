package main // entry point; the commands live in this package

func main() {
	Execute()
}
