package main

import (
	"fmt"

	"github.com/feltlabs/pitboss/internal/server"
)

type AddBotCmd struct {
	Table    string `arg:"" help:"Table id, e.g. table-micro"`
	Strategy string `default:"fish" enum:"fish,tag,lag" help:"Bot strategy"`
}

func (c *AddBotCmd) Run() error {
	var added server.AgentView
	err := apiPost("/tables/"+c.Table+"/add-bot", map[string]string{"strategy": c.Strategy}, &added)
	if err != nil {
		return err
	}
	fmt.Printf("seated %s (%s) at %s\n", added.Name, added.Type, idStyle.Render(c.Table))
	return nil
}
