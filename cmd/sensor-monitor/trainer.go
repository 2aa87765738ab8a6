package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lowaak/smart-trainer/sensor-core/internal/config"
	"github.com/lowaak/smart-trainer/sensor-core/internal/fec"
)

const defaultRollingResistance = 0.004

// trainerCommands turns the trainer settings into FE-C commands, in the order
// they are sent. Unset values produce no command.
func trainerCommands(t config.TrainerConfig) []fec.Command {
	var cmds []fec.Command
	if t.BasicResistancePercent > 0 {
		cmds = append(cmds, fec.BasicResistance{Percent: t.BasicResistancePercent})
	}
	if t.GradePercent != 0 {
		cmds = append(cmds, fec.TrackResistance{GradePercent: t.GradePercent, RollingResistance: defaultRollingResistance})
	}
	if t.TargetPowerWatts > 0 {
		cmds = append(cmds, fec.TargetPower{Watts: t.TargetPowerWatts})
	}
	return cmds
}

// sendTrainerCommands sends each command and waits for its status page
// before sending the next one
func sendTrainerCommands(ctx context.Context, c *fec.Controller, t config.TrainerConfig, logger *log.Logger) error {
	for _, cmd := range trainerCommands(t) {
		res, err := sendAndWait(ctx, c, cmd, t)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("page %d: %w", cmd.PageNumber(), err)
		}
		logger.Printf("Trainer: page %d %s", cmd.PageNumber(), res.Status)
		if res.Status != fec.CommandPass {
			return fmt.Errorf("page %d: trainer answered %s", cmd.PageNumber(), res.Status)
		}
	}
	return nil
}

func sendAndWait(ctx context.Context, c *fec.Controller, cmd fec.Command, t config.TrainerConfig) (fec.Result, error) {
	pending, err := c.SendCommand(cmd)
	if err != nil {
		return fec.Result{}, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, t.CommandTimeout)
	defer cancel()

	res, err := pending.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		// some trainers only answer when asked
		if reqErr := c.RequestDataPage(fec.PageCommandStatus); reqErr != nil {
			return fec.Result{}, reqErr
		}
		return fec.Result{}, fmt.Errorf("no command status within %s", t.CommandTimeout)
	}
	return res, err
}
