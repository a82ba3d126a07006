package config

// StarterTOML is the starter configuration written by `dotty init`.
const StarterTOML = `# dotty configuration

[dotty]
# timeout = "10m"
# on_conflict = "overwrite"   # or "skip"

[managers.pacman]
add = "pacman -S #:?"
remove = "pacman -Rns #:?"
update = "pacman -Syu"
sudo = true

[packages]
pacman = ["neovim", "git"]

# [files."~/.vimrc"]
# source = "vimrc"

# [hooks.update.cleanup]
# command = "paccache -r"

# [module]
# import = ["modules/work.toml"]

# [template]
# accent = "blue"
`
