package till

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
)

const consoleHelp = `commands:
  login <code> | logout
  menu | type takeaway|eat_in
  add <id> | qty <id> <n> | inc <id> | dec <id> | rm <id> | undo | cart
  hold [name] | held | resume <id> [force] | discard <id>
  rates [<vat%> <service%>]
  pay [name] | method card|cash|qr | cancel hold|discard | retry
  tap                        card
  keys <digits> | preset exact|5|10|20 | tender    cash ('<' deletes)
  qr | regen | received      qr
  eod <counted cash>
  quit`

// Console is a line based front end for a Till
type Console struct {
	till     *Till
	out      io.Writer
	logger   *logger.Logger
	outcomes chan Outcome
	unsaved  *Outcome
}

func NewConsole(t *Till, out io.Writer, log *logger.Logger) *Console {
	return &Console{till: t, out: out, logger: log, outcomes: make(chan Outcome, 1)}
}

// Run reads commands from in until quit, end of input or ctx is done.
// Payments completed by a timer are submitted as soon as they arrive.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printf("bakery till ready. type 'help' for commands\n")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-c.outcomes:
			c.submit(ctx, out)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "quit" {
				return nil
			}
			c.Exec(ctx, line)
			c.drain(ctx)
		}
	}
}

// drain submits an outcome delivered synchronously by the last command
func (c *Console) drain(ctx context.Context) {
	select {
	case out := <-c.outcomes:
		c.submit(ctx, out)
	default:
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Exec runs one command line
func (c *Console) Exec(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]
	if err := c.exec(ctx, cmd, args); err != nil {
		c.printf("error: %v\n", err)
	}
}

func (c *Console) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		c.printf("%s\n", consoleHelp)
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("usage: login <code>")
		}
		u, err := c.till.Login(ctx, args[0])
		if err != nil {
			return err
		}
		c.printf("signed in as %s (%s)\n", u.FullName, u.Role)
		return c.till.RefreshMenu(ctx)
	case "logout":
		if err := c.till.Logout(ctx); err != nil {
			return err
		}
		c.printf("signed out\n")
	case "menu":
		if err := c.till.RefreshMenu(ctx); err != nil {
			return err
		}
		c.printMenu()
	case "type":
		if len(args) != 1 {
			return fmt.Errorf("usage: type takeaway|eat_in")
		}
		t, err := models.ParseOrderType(args[0])
		if err != nil {
			return err
		}
		c.till.Cart.SetOrderType(t)
		c.printCart()
	case "add":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		if err := c.till.AddItem(id); err != nil {
			return err
		}
		c.printCart()
	case "qty":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return fmt.Errorf("usage: qty <id> <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		c.till.Cart.SetQuantity(id, n)
		c.printCart()
	case "inc", "dec":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		delta := 1
		if cmd == "dec" {
			delta = -1
		}
		c.till.Cart.AdjustQuantity(id, delta)
		c.printCart()
	case "rm":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		c.till.Cart.Remove(id)
		c.printCart()
	case "undo":
		if !c.till.Cart.Undo() {
			c.printf("nothing to undo\n")
		}
		c.printCart()
	case "cart":
		c.printCart()
	case "hold":
		h, err := c.till.Hold(strings.Join(args, " "))
		if err != nil {
			return err
		}
		c.printf("held %s (%d items)\n", h.ID, h.ItemCount())
	case "held":
		c.printHeld()
	case "resume":
		if len(args) == 0 {
			return fmt.Errorf("usage: resume <id> [force]")
		}
		h, err := c.till.Resume(args[0], len(args) > 1 && args[1] == "force")
		if err != nil {
			return err
		}
		c.printf("resumed %s\n", h.ID)
		c.printCart()
	case "discard":
		if len(args) != 1 {
			return fmt.Errorf("usage: discard <id>")
		}
		h, err := c.till.Held.Discard(args[0])
		if err != nil {
			return err
		}
		c.printf("discarded %s\n", h.ID)
	case "rates":
		return c.rates(ctx, args)
	case "pay":
		w, err := c.till.StartPayment(strings.Join(args, " "), func(out Outcome) { c.outcomes <- out })
		if err != nil {
			return err
		}
		c.printf("total due %s. choose: method card|cash|qr\n", w.View().Totals.Total)
	case "cancel":
		if len(args) != 1 || (args[0] != "hold" && args[0] != "discard") {
			return fmt.Errorf("usage: cancel hold|discard")
		}
		h, err := c.till.CancelPayment(ctx, args[0] == "hold")
		if err != nil {
			return err
		}
		if h != nil {
			c.printf("order held as %s\n", h.ID)
		} else {
			c.printf("order discarded\n")
		}
	case "retry":
		if c.unsaved == nil {
			return fmt.Errorf("nothing to retry")
		}
		out := *c.unsaved
		c.unsaved = nil
		c.submit(ctx, out)
	case "eod":
		if len(args) != 1 {
			return fmt.Errorf("usage: eod <counted cash>")
		}
		counted, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		rec, err := c.till.Reconcile(ctx, counted)
		if err != nil {
			return err
		}
		c.printf("%s: expected £%s, counted £%s, discrepancy £%s over %d cash orders\n",
			rec.Date, rec.ExpectedCash.StringFixed(2), rec.CountedCash.StringFixed(2), rec.Discrepancy.StringFixed(2), rec.CashOrders)
	default:
		return c.payment(cmd, args)
	}
	return nil
}

// payment runs the commands that act on the workflow in progress
func (c *Console) payment(cmd string, args []string) error {
	w := c.till.Payment()
	switch cmd {
	case "method", "tap", "keys", "preset", "tender", "qr", "regen", "received":
		if w == nil {
			return ErrNoPayment
		}
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}

	switch cmd {
	case "method":
		if len(args) != 1 {
			return fmt.Errorf("usage: method card|cash|qr")
		}
		if err := w.SelectMethod(models.PaymentMethod(args[0])); err != nil {
			return err
		}
	case "tap":
		if err := w.Tap(); err != nil {
			return err
		}
	case "keys":
		for _, r := range strings.Join(args, "") {
			if r == '<' {
				r = Backspace
			}
			if err := w.PressKey(r); err != nil {
				return err
			}
		}
	case "preset":
		p, err := findPreset(args)
		if err != nil {
			return err
		}
		if err := w.ApplyPreset(p); err != nil {
			return err
		}
	case "tender":
		if err := w.Tender(); err != nil {
			return err
		}
	case "qr":
		payload, err := w.QRPayload()
		if err != nil {
			return err
		}
		c.printf("%s\n", payload)
	case "regen":
		if err := w.RegenerateQR(); err != nil {
			return err
		}
	case "received":
		if err := w.ConfirmReceived(); err != nil {
			return err
		}
	}
	c.printPayment(w.View())
	return nil
}

func (c *Console) rates(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.printf("%s\n", c.till.Rates())
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: rates <vat%%> <service%%>")
	}
	hundred := decimal.NewFromInt(100)
	vat, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid vat %q", args[0])
	}
	service, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid service %q", args[1])
	}
	r := Rates{VAT: vat.Div(hundred), Service: service.Div(hundred)}
	if err := c.till.UpdateRates(ctx, r); err != nil {
		return err
	}
	c.printf("%s\n", r)
	return nil
}

func (c *Console) submit(ctx context.Context, out Outcome) {
	reqCtx := logger.WithRequestID(ctx, logger.GenerateRequestID())
	order, err := c.till.Submit(reqCtx, out)
	if err != nil {
		c.printf("payment taken but order not saved: %v. use 'retry'\n", err)
		c.unsaved = &out
		return
	}
	c.printf("paid %s by %s. order %d saved\n", out.Totals.Total, out.Method, order.ID)
	if out.Method == models.PaymentCash {
		c.printf("change due %s\n", out.Change)
	}
}

func (c *Console) printMenu() {
	items := c.till.Catalog.Orderable(c.till.Cart.OrderType())
	category := ""
	for _, it := range items {
		if it.CategoryName != category {
			category = it.CategoryName
			c.printf("%s\n", category)
		}
		c.printf("  %4d  %-24s %s\n", it.ID, it.Name, it.PricePence())
	}
}

func (c *Console) printCart() {
	entries, orderType := c.till.Cart.Snapshot()
	label := "no order type"
	if orderType.Valid() {
		label = orderType.Label()
	}
	c.printf("cart (%s)\n", label)
	for _, e := range entries {
		c.printf("  %2d × %-24s %s\n", e.Quantity, e.Item.Name, e.Item.PricePence()*models.Pence(e.Quantity))
	}
	if e, ok := c.till.Cart.Pending(); ok {
		c.printf("  removed %s, 'undo' to restore\n", e.Item.Name)
	}
	t := c.till.Totals()
	c.printf("  subtotal %s  vat %s  service %s  total %s\n", t.Subtotal, t.VAT, t.Service, t.Total)
}

func (c *Console) printHeld() {
	held := c.till.Held.List()
	if len(held) == 0 {
		c.printf("no held orders\n")
		return
	}
	for _, h := range held {
		name := h.CustomerName
		if name == "" {
			name = "-"
		}
		c.printf("  %s  %-12s %2d items  %s by %s\n", h.ID, name, h.ItemCount(), h.HeldAt.Local().Format(time.Kitchen), h.HeldBy)
	}
}

func (c *Console) printPayment(v View) {
	switch {
	case v.Stage == StageCompleted:
		return
	case v.Method == models.PaymentCard:
		c.printf("card: %s\n", v.Card)
		if v.CardErr != nil {
			c.printf("card declined: %v\n", v.CardErr)
		}
	case v.Method == models.PaymentCash:
		if v.CanTender {
			c.printf("cash: %s tendered, change %s\n", v.Tendered, v.Change)
		} else {
			c.printf("cash: %s tendered, short %s\n", v.Tendered, v.Shortfall)
		}
	case v.Method == models.PaymentQR:
		if v.QRExpired {
			c.printf("qr %s expired, 'regen' for a new code\n", v.QRRef)
		} else {
			c.printf("qr %s expires in %s\n", v.QRRef, v.QRRemaining.Round(time.Second))
		}
	}
}

func argID(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("item id is required")
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", args[i])
	}
	return id, nil
}

// parseAmount reads a pounds amount such as "123.45"
func parseAmount(s string) (models.Pence, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "£"))
	if err != nil || d.IsNegative() || !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return models.PenceFromDecimal(d), nil
}

func findPreset(args []string) (CashPreset, error) {
	if len(args) != 1 {
		return CashPreset{}, fmt.Errorf("usage: preset exact|5|10|20")
	}
	want := strings.ToLower(args[0])
	for _, p := range CashPresets {
		label := strings.ToLower(strings.TrimPrefix(p.Label, "+£"))
		if label == want {
			return p, nil
		}
	}
	return CashPreset{}, fmt.Errorf("unknown preset %q", args[0])
}
