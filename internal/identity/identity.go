// SPDX-License-Identifier: MPL-2.0

// Package identity resolves target and operator accounts against the live
// system account database. Resolution is pure lookup: no side effects, safe
// to call repeatedly, never cached across invocations.
package identity

import (
	"fmt"
	"os"
	"os/user"
	"strconv"

	"github.com/podstrap/podstrap/internal/issue"
)

// MinTargetUID is the floor below which an account is considered a system
// account and rejected as an install target. Rootless container stacks need
// a real login account with a subuid/subgid range, which system accounts
// lack.
const MinTargetUID = 1000

// elevatedGroups are the group names whose membership grants per-command
// privilege elevation on the distributions podstrap supports.
var elevatedGroups = []string{"sudo", "wheel"}

// Identity is a resolved account: read-only input for every other component.
type Identity struct {
	Name string
	Home string
	UID  int
	GID  int
}

// String renders the identity for log lines.
func (id Identity) String() string {
	return fmt.Sprintf("%s(uid=%d gid=%d home=%s)", id.Name, id.UID, id.GID, id.Home)
}

// Resolver looks up accounts. The lookup functions are seams so tests can
// run without touching the real account database.
type Resolver struct {
	lookup        func(name string) (*user.User, error)
	current       func() (*user.User, error)
	groupIDs      func(u *user.User) ([]string, error)
	lookupGroupID func(gid string) (*user.Group, error)
	geteuid       func() int
	stat          func(path string) (os.FileInfo, error)
}

// NewResolver returns a Resolver backed by the real account database.
func NewResolver() *Resolver {
	return &Resolver{
		lookup:        user.Lookup,
		current:       user.Current,
		groupIDs:      (*user.User).GroupIds,
		lookupGroupID: user.LookupGroupId,
		geteuid:       os.Geteuid,
		stat:          os.Stat,
	}
}

// Resolve maps an account name to an Identity, enforcing the rootless-safe
// invariants: the account must exist, have a real home directory, and sit at
// or above the non-system uid floor.
func (r *Resolver) Resolve(name string) (Identity, error) {
	u, err := r.lookup(name)
	if err != nil {
		return Identity{}, issue.NewContext(issue.ErrUnknownAccount).
			Operation("resolve target account").
			Identity(name).
			Suggestion(fmt.Sprintf("Create the account first: sudo useradd -m %s", name)).
			Wrap(err).
			Err()
	}

	if err := r.checkHome(u); err != nil {
		return Identity{}, err
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Identity{}, issue.NewContext(issue.ErrInternal).
			Operation("resolve target account").
			Identity(name).
			Wrap(fmt.Errorf("non-numeric uid %q: %w", u.Uid, err)).
			Err()
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Identity{}, issue.NewContext(issue.ErrInternal).
			Operation("resolve target account").
			Identity(name).
			Wrap(fmt.Errorf("non-numeric gid %q: %w", u.Gid, err)).
			Err()
	}

	if uid == 0 || uid < MinTargetUID {
		return Identity{}, issue.NewContext(issue.ErrInsufficientPrivilege).
			Operation("resolve target account").
			Identity(name).
			Suggestion(fmt.Sprintf("Pick a regular login account (uid >= %d); system accounts cannot run a rootless stack", MinTargetUID)).
			Wrap(fmt.Errorf("uid %d is below the non-system floor", uid)).
			Err()
	}

	return Identity{Name: u.Username, Home: u.HomeDir, UID: uid, GID: gid}, nil
}

// AssertOperator validates the calling account: it must not be root, must
// belong to an elevated-privilege group, and must have a real home
// directory. Returns the operator's identity shape for logging.
func (r *Resolver) AssertOperator() (Identity, error) {
	u, err := r.current()
	if err != nil {
		return Identity{}, issue.NewContext(issue.ErrUnknownAccount).
			Operation("resolve operator account").
			Wrap(err).
			Err()
	}

	if r.geteuid() == 0 {
		return Identity{}, issue.NewContext(issue.ErrInsufficientPrivilege).
			Operation("validate operator privilege").
			Identity(u.Username).
			Suggestion("Run as a regular account that elevates per command, not as root").
			Wrap(fmt.Errorf("effective uid is 0")).
			Err()
	}

	member, err := r.inElevatedGroup(u)
	if err != nil {
		return Identity{}, issue.NewContext(issue.ErrInsufficientPrivilege).
			Operation("validate operator privilege").
			Identity(u.Username).
			Wrap(err).
			Err()
	}
	if !member {
		return Identity{}, issue.NewContext(issue.ErrInsufficientPrivilege).
			Operation("validate operator privilege").
			Identity(u.Username).
			Suggestion(fmt.Sprintf("Add the operator to an elevated group: sudo usermod -aG sudo %s", u.Username)).
			Wrap(fmt.Errorf("not a member of any of %v", elevatedGroups)).
			Err()
	}

	if err := r.checkHome(u); err != nil {
		return Identity{}, err
	}

	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)
	return Identity{Name: u.Username, Home: u.HomeDir, UID: uid, GID: gid}, nil
}

func (r *Resolver) checkHome(u *user.User) error {
	if u.HomeDir == "" || u.HomeDir == "/" {
		return r.homeError(u, fmt.Errorf("home directory is %q", u.HomeDir))
	}
	info, err := r.stat(u.HomeDir)
	if err != nil {
		return r.homeError(u, err)
	}
	if !info.IsDir() {
		return r.homeError(u, fmt.Errorf("%s is not a directory", u.HomeDir))
	}
	return nil
}

func (r *Resolver) homeError(u *user.User, cause error) error {
	return issue.NewContext(issue.ErrNoHomeDirectory).
		Operation("validate home directory").
		Identity(u.Username).
		Resource(u.HomeDir).
		Suggestion(fmt.Sprintf("Create it with: sudo mkhomedir_helper %s", u.Username)).
		Wrap(cause).
		Err()
}

func (r *Resolver) inElevatedGroup(u *user.User) (bool, error) {
	gids, err := r.groupIDs(u)
	if err != nil {
		return false, fmt.Errorf("list group memberships: %w", err)
	}
	for _, gid := range gids {
		g, err := r.lookupGroupID(gid)
		if err != nil {
			continue // stale gid in the membership list, not our problem
		}
		for _, name := range elevatedGroups {
			if g.Name == name {
				return true, nil
			}
		}
	}
	return false, nil
}
