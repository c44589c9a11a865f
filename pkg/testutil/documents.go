package testutil

// SystemDocument is a NixOS configuration whose package list is scoped
// with "with pkgs;".
const SystemDocument = `{ config, pkgs, ... }:

{
  imports = [ ./hardware-configuration.nix ];

  networking.hostName = "nixos";

  environment.systemPackages = with pkgs; [
    vim # editor
    htop
  ];

  system.stateVersion = "23.05";
}
`

// HomeDocument is a home-manager configuration with qualified entries
const HomeDocument = `{ config, pkgs, ... }:

{
  home.username = "me";
  home.packages = [
    pkgs.ripgrep
    pkgs.fd
  ];
  programs.git.enable = true;
}
`

// EnvQueryJSON is "nix-env -q --json" output listing htop and ripgrep
const EnvQueryJSON = `{
  "htop-3.2.2": {"name": "htop-3.2.2", "pname": "htop", "version": "3.2.2"},
  "ripgrep-14.0.3": {"name": "ripgrep-14.0.3", "pname": "ripgrep", "version": "14.0.3"}
}`
