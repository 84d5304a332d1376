// Command fixreg checks the documented provenance of a model fixture directory.
package main

import "github.com/papapumpkin/fixreg/cmd"

func main() {
	cmd.Execute()
}
