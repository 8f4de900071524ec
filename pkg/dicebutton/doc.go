/*
Package dicebutton provides the stateful button-interaction framework of a
chat dice bot.

The chat platform's interaction model is stateless: every button click
arrives as an isolated event carrying only an opaque identifier and the
identity of the clicker. This package reconstructs where the flow left off
and decides what happens next:

  - the customid subpackage decodes the clicked identifier, recognising both
    the current format (command, button value, flow UUID) and the legacy
    formats that embedded configuration directly in the identifier
  - the record subpackage persists each flow's immutable Config and its
    wholesale-replaced Progress
  - one Handler per command kind implements the pure transition function
    Step(config, progress, flowID, buttonValue, invoker) -> StepResult
  - the Router ties it together: decode, load or bridge, step, then apply
    the resulting side effects through a ChatAdapter

A StepResult is exactly one of Continue (edit the message in place),
Finalize (produce an answer and reset the flow) or Reject (ignore the
click). Persistence writes happen before the adapter edit that reflects
them; clicks on different flows never contend.

# Basic usage

	store, _ := record.NewSQLiteStore("./flows.db")
	roller := dice.NewRoller(seed)
	router := dicebutton.NewRouter(store, []dicebutton.Handler{
	    holdreroll.New(roller),
	    pooltarget.New(roller),
	})

	// on slash command:
	router.StartFlow(ctx, adapter, holdreroll.CommandID, cfg, channelID, guildID)

	// on button click:
	router.HandleClick(ctx, adapter, click)
*/
package dicebutton
