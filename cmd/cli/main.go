package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/0xChaser/EasyBooking/internal/api"
	"github.com/0xChaser/EasyBooking/internal/config"
	"github.com/0xChaser/EasyBooking/internal/dashboard"
	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/export"
	"github.com/0xChaser/EasyBooking/internal/logging"
	"github.com/0xChaser/EasyBooking/internal/models"
	"github.com/0xChaser/EasyBooking/internal/repository"
	"github.com/0xChaser/EasyBooking/internal/session"

	"github.com/rs/zerolog"
)

type options struct {
	cmd         string
	email       string
	password    string
	firstName   string
	lastName    string
	id          string
	name        string
	address     string
	capacity    string
	description string
	status      string
	roomID      string
	date        string
	start       string
	end         string
	yes         bool
	verbose     bool

	// set holds the names of flags given on the command line.
	set map[string]bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "me", "Command: login|logout|register|me|rooms|bookings|room-create|room-edit|room-delete|book|cancel|export")
	flag.StringVar(&opts.email, "email", "", "Account email (login, register)")
	flag.StringVar(&opts.password, "password", os.Getenv("EASYBOOKING_PASSWORD"), "Account password (login, register)")
	flag.StringVar(&opts.firstName, "first-name", "", "First name (register)")
	flag.StringVar(&opts.lastName, "last-name", "", "Last name (register)")
	flag.StringVar(&opts.id, "id", "", "Room or booking id (room-edit, room-delete, cancel)")
	flag.StringVar(&opts.name, "name", "", "Room name")
	flag.StringVar(&opts.address, "address", "", "Room address")
	flag.StringVar(&opts.capacity, "capacity", "", "Room capacity")
	flag.StringVar(&opts.description, "description", "", "Room description")
	flag.StringVar(&opts.status, "status", "", "Room status: available|unavailable|maintenance")
	flag.StringVar(&opts.roomID, "room", "", "Room id (book)")
	flag.StringVar(&opts.date, "date", "", "Booking date, YYYY-MM-DD")
	flag.StringVar(&opts.start, "start", "", "Booking start time, HH:MM")
	flag.StringVar(&opts.end, "end", "", "Booking end time, HH:MM")
	flag.BoolVar(&opts.yes, "yes", false, "Do not ask before destructive actions")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()
	opts.set = setFlags()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App, logging.Interactive(opts.verbose))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCLI(cfg, opts, logger, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer c.close()

	return c.dispatch(ctx)
}

// cli is one signed-in dashboard bound to a terminal.
type cli struct {
	cfg      *config.Config
	opts     options
	out      io.Writer
	errOut   io.Writer
	in       *bufio.Reader
	cookies  *repository.SQLiteStore
	store    *session.Store
	ws       *dashboard.Workspace
	exporter *export.Exporter
	logger   *zerolog.Logger
}

func newCLI(cfg *config.Config, opts options, logger *zerolog.Logger, in io.Reader, out, errOut io.Writer) (*cli, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cookies, err := repository.NewSQLiteStore(cfg.Session.StorePath, logging.Component(logger, "cookies"))
	if err != nil {
		return nil, fmt.Errorf("open cookie store: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.APITimeout()),
		api.WithRateLimit(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst),
		api.WithLogger(logging.Component(logger, "api-client")),
	)

	bus := events.NewEventBus()
	store := session.New(client, cookies, cfg.Session.CookieName, session.Options{
		TTL:    cfg.SessionTTL(),
		Bus:    bus,
		Logger: logging.Component(logger, "session"),
	})

	c := &cli{
		cfg:      cfg,
		opts:     opts,
		out:      out,
		errOut:   errOut,
		in:       bufio.NewReader(in),
		cookies:  cookies,
		store:    store,
		exporter: export.NewExporter(cfg.Exports.Path, loc, logging.Component(logger, "export")),
		logger:   logger,
	}

	var confirmer dashboard.ConfirmFunc = c.confirm
	if opts.yes {
		confirmer = func(context.Context, string) bool { return true }
	}

	c.ws = dashboard.NewWorkspace(store, client.WithTokenSource(store), bus, dashboard.Deps{
		Notifier: dashboard.NotifierFuncs{
			OnSuccess: func(_ context.Context, msg string) { fmt.Fprintln(c.out, msg) },
			OnError:   func(_ context.Context, msg string) { fmt.Fprintln(c.errOut, "Error: "+msg) },
		},
		Confirmer:    confirmer,
		Logger:       logging.Component(logger, "dashboard"),
		Location:     loc,
		DefaultStart: cfg.Dashboard.DefaultStartTime,
		DefaultEnd:   cfg.Dashboard.DefaultEndTime,
	})
	return c, nil
}

func (c *cli) close() {
	c.ws.Close()
	if err := c.cookies.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("close cookie store")
	}
}

func (c *cli) confirm(_ context.Context, prompt string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (c *cli) dispatch(ctx context.Context) error {
	switch c.opts.cmd {
	case "login":
		return c.login(ctx)
	case "register":
		return c.register(ctx)
	}

	if err := c.store.Init(ctx); err != nil {
		return err
	}

	switch c.opts.cmd {
	case "logout":
		return c.store.Logout(ctx)
	case "me":
		return c.me()
	}

	if c.ws.Gate() != dashboard.GateAuthenticated {
		return errors.New("not logged in, run with -cmd login first")
	}

	switch c.opts.cmd {
	case "rooms":
		return c.listRooms(ctx)
	case "bookings":
		return c.listBookings(ctx)
	case "room-create":
		return c.createRoom(ctx)
	case "room-edit":
		return c.editRoom(ctx)
	case "room-delete":
		return c.deleteRoom(ctx)
	case "book":
		return c.book(ctx)
	case "cancel":
		return c.cancelBooking(ctx)
	case "export":
		return c.export(ctx)
	default:
		return fmt.Errorf("unknown command %q", c.opts.cmd)
	}
}

func (c *cli) login(ctx context.Context) error {
	if c.opts.email == "" || c.opts.password == "" {
		return errors.New("-email and -password are required")
	}
	if err := c.store.Login(ctx, c.opts.email, c.opts.password); err != nil {
		if errors.Is(err, api.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		return err
	}
	return c.me()
}

func (c *cli) register(ctx context.Context) error {
	req := models.RegisterRequest{
		Email:     c.opts.email,
		Password:  c.opts.password,
		FirstName: c.opts.firstName,
		LastName:  c.opts.lastName,
	}
	if req.Email == "" || req.Password == "" {
		return errors.New("-email and -password are required")
	}
	if err := c.store.Register(ctx, req); err != nil {
		return errors.New(api.DetailOr(err, "registration failed"))
	}
	fmt.Fprintln(c.out, "Account created, you can now log in")
	return nil
}

func (c *cli) me() error {
	user := c.store.State().User
	if user == nil {
		fmt.Fprintln(c.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s>\n", user.FullName(), user.Email)
	return nil
}

func (c *cli) listRooms(ctx context.Context) error {
	if err := c.ws.Rooms.Mount(ctx); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tCAPACITY\tSTATUS")
	for _, r := range c.ws.Rooms.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Name, r.Address, r.Capacity, dashboard.StatusLabel(string(r.Status)))
	}
	return tw.Flush()
}

func (c *cli) listBookings(ctx context.Context) error {
	if err := c.ws.Bookings.Mount(ctx); err != nil {
		return err
	}
	loc, _ := c.cfg.Location()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOM\tSTART\tEND\tSTATUS")
	for _, b := range c.ws.Bookings.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			b.ID,
			b.RoomName(dashboard.UnknownRoom),
			b.StartTime.In(loc).Format("2006-01-02 15:04"),
			b.EndTime.In(loc).Format("2006-01-02 15:04"),
			dashboard.StatusLabel(string(b.Status)),
		)
	}
	return tw.Flush()
}

func (c *cli) createRoom(ctx context.Context) error {
	c.ws.RoomForm.OpenCreate()
	if err := c.ws.RoomForm.Update(func(d *dashboard.RoomDraft) {
		d.Name = c.opts.name
		d.Address = c.opts.address
		d.Capacity = c.opts.capacity
		d.Description = c.opts.description
		d.Status = models.RoomStatus(c.opts.status)
	}); err != nil {
		return err
	}
	room, err := c.ws.RoomForm.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, room.ID)
	return nil
}

// editRoom overrides only the fields passed on the command line.
func (c *cli) editRoom(ctx context.Context) error {
	room, err := c.findRoom(ctx)
	if err != nil {
		return err
	}
	c.ws.RoomForm.OpenEdit(room)
	set := c.opts.set
	if err := c.ws.RoomForm.Update(func(d *dashboard.RoomDraft) {
		if set["name"] {
			d.Name = c.opts.name
		}
		if set["address"] {
			d.Address = c.opts.address
		}
		if set["capacity"] {
			d.Capacity = c.opts.capacity
		}
		if set["description"] {
			d.Description = c.opts.description
		}
		if set["status"] {
			d.Status = models.RoomStatus(c.opts.status)
		}
	}); err != nil {
		return err
	}
	_, err = c.ws.RoomForm.Submit(ctx)
	return err
}

func (c *cli) deleteRoom(ctx context.Context) error {
	room, err := c.findRoom(ctx)
	if err != nil {
		return err
	}
	return quietDeclined(c.ws.Rooms.Delete(ctx, room))
}

func (c *cli) book(ctx context.Context) error {
	if c.opts.roomID == "" {
		return errors.New("-room is required")
	}
	if err := c.ws.BookingForm.Open(ctx, c.opts.roomID, ""); err != nil {
		return err
	}
	if err := c.ws.BookingForm.Update(func(d *dashboard.BookingDraft) {
		d.Date = c.opts.date
		if c.opts.start != "" {
			d.StartTime = c.opts.start
		}
		if c.opts.end != "" {
			d.EndTime = c.opts.end
		}
	}); err != nil {
		return err
	}
	booking, err := c.ws.BookingForm.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, booking.ID)
	return nil
}

func (c *cli) cancelBooking(ctx context.Context) error {
	if c.opts.id == "" {
		return errors.New("-id is required")
	}
	if err := c.ws.Bookings.Mount(ctx); err != nil {
		return err
	}
	booking, ok := c.ws.Bookings.Find(c.opts.id)
	if !ok {
		return fmt.Errorf("booking %s not found", c.opts.id)
	}
	err := c.ws.Bookings.Cancel(ctx, booking)
	if errors.Is(err, dashboard.ErrActionDisabled) {
		return fmt.Errorf("booking is already %s", booking.Status)
	}
	return quietDeclined(err)
}

func (c *cli) export(ctx context.Context) error {
	if err := c.ws.Mount(ctx); err != nil {
		return err
	}
	path, err := c.exporter.Bookings(c.ws.Bookings.Items(), c.ws.Rooms.Items(), "")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, path)
	return nil
}

func (c *cli) findRoom(ctx context.Context) (models.Room, error) {
	if c.opts.id == "" {
		return models.Room{}, errors.New("-id is required")
	}
	if err := c.ws.Rooms.Mount(ctx); err != nil {
		return models.Room{}, err
	}
	room, ok := c.ws.Rooms.Find(c.opts.id)
	if !ok {
		return models.Room{}, fmt.Errorf("room %s not found", c.opts.id)
	}
	return room, nil
}

func quietDeclined(err error) error {
	if errors.Is(err, dashboard.ErrDeclined) {
		return nil
	}
	return err
}

func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
