// simpleScene drops a tilted cube on a fixed slab and logs the cube until it rests.
package main

import (
	"encoding/json"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/akmonengine/rigid"
	"github.com/akmonengine/rigid/actor"
	"github.com/akmonengine/rigid/logging"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagSteps  = "steps"
)

func main() {
	app := &cli.App{
		Name:  "simpleScene",
		Usage: "drop a cube on a slab",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load world configuration from JSON `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log every body at each step",
			},
			&cli.IntFlag{
				Name:  flagSteps,
				Value: 200,
				Usage: "number of steps of 1/60 s to simulate",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("simpleScene").Fatal(err)
	}
}

// loadConfig reads a JSON object of world attributes. Without a file the scene uses a
// slightly bouncy default.
func loadConfig(path string) (rigid.Config, error) {
	attributes := map[string]interface{}{"restitution": 0.3}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return rigid.Config{}, errors.Wrapf(err, "cannot read %s", path)
		}
		if err := json.Unmarshal(data, &attributes); err != nil {
			return rigid.Config{}, errors.Wrapf(err, "cannot parse %s", path)
		}
	}

	return rigid.ConfigFromMap(attributes)
}

func run(c *cli.Context) error {
	var logger *zap.SugaredLogger
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("simpleScene")
	} else {
		logger = logging.NewLogger("simpleScene")
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}

	world, err := rigid.NewWorld(cfg, logger)
	if err != nil {
		return err
	}

	ground := world.NewBody(&actor.Box{HalfExtents: mgl64.Vec3{10, 0.5, 10}}, 0, mgl64.Vec3{0, -0.5, 0})
	ground.Name = "ground"

	cube := world.NewBody(&actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, 1, mgl64.Vec3{0, 3, 0})
	cube.Name = "cube"
	cube.SetOrientation(mgl64.QuatRotate(0.4, mgl64.Vec3{1, 0, 1}.Normalize()))
	cube.SetAngularVelocity(mgl64.Vec3{0, 2, 0})

	world.Events.Subscribe(rigid.COLLISION_ENTER, func(event rigid.Event) {
		e := event.(rigid.CollisionEnterEvent)
		logger.Infow("contact", "time", world.Time(), "a", e.BodyA.Name, "b", e.BodyB.Name,
			"points", len(e.Surface.Points), "depth", e.Surface.Depth)
	})
	world.Events.Subscribe(rigid.COLLISION_EXIT, func(event rigid.Event) {
		e := event.(rigid.CollisionExitEvent)
		logger.Infow("separation", "time", world.Time(), "a", e.BodyA.Name, "b", e.BodyB.Name)
	})

	const dt = 1.0 / 60
	for step := 0; step < c.Int(flagSteps); step++ {
		world.Step(dt)
		if c.Bool(flagDebug) {
			world.Dump()
		}
	}

	logger.Infow("done",
		"time", world.Time(),
		"cube", cube,
		"kinetic_energy", world.KineticEnergy(),
	)

	return nil
}
